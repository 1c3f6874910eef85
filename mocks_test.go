package userstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	userstore "github.com/goliatone/go-userstore"
	"github.com/goliatone/go-userstore/docstore"
)

// MockClient implements docstore.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Get(ctx context.Context, req docstore.GetRequest) (docstore.Document, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(docstore.Document), args.Error(1)
}

func (m *MockClient) Update(ctx context.Context, req docstore.UpdateRequest) (docstore.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(docstore.Result), args.Error(1)
}

func (m *MockClient) Index(ctx context.Context, req docstore.IndexRequest) (docstore.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(docstore.Result), args.Error(1)
}

func (m *MockClient) Delete(ctx context.Context, req docstore.DeleteRequest) (docstore.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(docstore.Result), args.Error(1)
}

func (m *MockClient) Search(ctx context.Context, req docstore.SearchRequest) (docstore.Page, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(docstore.Page), args.Error(1)
}

func (m *MockClient) Scroll(ctx context.Context, cursorID string, keepAlive time.Duration) (docstore.Page, error) {
	args := m.Called(ctx, cursorID, keepAlive)
	return args.Get(0).(docstore.Page), args.Error(1)
}

func (m *MockClient) ClearCursor(ctx context.Context, cursorID string) error {
	args := m.Called(ctx, cursorID)
	return args.Error(0)
}

// MockInvalidator implements userstore.CacheInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) ClearCachedUser(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// newStartedStore builds a store over client, applies opts, and walks it
// into the started state.
func newStartedStore(t *testing.T, client docstore.Client, opts ...userstore.Option) *userstore.Store {
	t.Helper()

	store := userstore.New(client, opts...)
	require.NoError(t, store.Start())
	require.True(t, store.Started())
	return store
}

func userDoc(username, passwordHash string, enabled bool) docstore.Document {
	return docstore.Document{
		ID:    username,
		Found: true,
		Source: map[string]any{
			"username": username,
			"password": passwordHash,
			"roles":    []any{"admin"},
			"enabled":  enabled,
		},
	}
}
