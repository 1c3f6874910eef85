package userstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	userstore "github.com/goliatone/go-userstore"
	"github.com/goliatone/go-userstore/docstore"
)

func reservedDoc(username, passwordHash string, enabled bool) docstore.Document {
	return docstore.Document{
		ID:    username,
		Found: true,
		Source: map[string]any{
			"password": passwordHash,
			"enabled":  enabled,
		},
	}
}

func TestGetReservedUserInfo(t *testing.T) {
	client := &MockClient{}
	client.On("Get", mock.Anything, docstore.GetRequest{
		Index: userstore.DefaultIndexName,
		Kind:  userstore.ReservedUserKind,
		ID:    "elastic",
	}).Return(reservedDoc("elastic", "$2a$hash", false), nil)

	store := newStartedStore(t, client)

	info, err := store.GetReservedUserInfo(context.Background(), "elastic")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "$2a$hash", info.PasswordHash)
	assert.False(t, info.Enabled)
	client.AssertExpectations(t)
}

func TestGetReservedUserInfoMissingDocument(t *testing.T) {
	client := &MockClient{}
	client.On("Get", mock.Anything, mock.Anything).
		Return(docstore.Document{ID: "elastic"}, nil)

	store := newStartedStore(t, client)

	info, err := store.GetReservedUserInfo(context.Background(), "elastic")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetReservedUserInfoMissingIndex(t *testing.T) {
	client := &MockClient{}
	client.On("Get", mock.Anything, mock.Anything).
		Return(docstore.Document{}, docstore.ErrIndexNotFound)

	store := newStartedStore(t, client)

	info, err := store.GetReservedUserInfo(context.Background(), "elastic")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetReservedUserInfoMalformedRecordFails(t *testing.T) {
	tests := []struct {
		name   string
		source map[string]any
	}{
		{
			name:   "empty password hash",
			source: map[string]any{"password": "", "enabled": true},
		},
		{
			name:   "missing enabled flag",
			source: map[string]any{"password": "$2a$hash"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockClient{}
			client.On("Get", mock.Anything, mock.Anything).
				Return(docstore.Document{ID: "elastic", Found: true, Source: tt.source}, nil)

			store := newStartedStore(t, client)

			info, err := store.GetReservedUserInfo(context.Background(), "elastic")
			require.Error(t, err)
			assert.Nil(t, info)
		})
	}
}

func TestAllReservedUserInfo(t *testing.T) {
	client := &MockClient{}
	client.On("Search", mock.Anything, mock.MatchedBy(func(req docstore.SearchRequest) bool {
		return req.Kind == userstore.ReservedUserKind && req.IgnoreUnavailable
	})).Return(docstore.Page{
		Hits: []docstore.Document{
			reservedDoc("elastic", "$2a$hash1", true),
			reservedDoc("kibana", "$2a$hash2", false),
		},
	}, nil)

	store := newStartedStore(t, client)

	infos, err := store.AllReservedUserInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "$2a$hash1", infos["elastic"].PasswordHash)
	assert.True(t, infos["elastic"].Enabled)
	assert.Equal(t, "$2a$hash2", infos["kibana"].PasswordHash)
	assert.False(t, infos["kibana"].Enabled)
}

func TestAllReservedUserInfoMissingIndex(t *testing.T) {
	client := &MockClient{}
	client.On("Search", mock.Anything, mock.Anything).
		Return(docstore.Page{}, docstore.ErrIndexNotFound)

	store := newStartedStore(t, client)

	infos, err := store.AllReservedUserInfo(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)
}

func TestAllReservedUserInfoMalformedRecordFailsWholeCall(t *testing.T) {
	client := &MockClient{}
	client.On("Search", mock.Anything, mock.Anything).
		Return(docstore.Page{
			Hits: []docstore.Document{
				reservedDoc("elastic", "$2a$hash", true),
				{ID: "kibana", Found: true, Source: map[string]any{"password": ""}},
			},
		}, nil)

	store := newStartedStore(t, client)

	infos, err := store.AllReservedUserInfo(context.Background())
	require.Error(t, err)
	assert.Nil(t, infos)
}
