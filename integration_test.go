package userstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	userstore "github.com/goliatone/go-userstore"
	"github.com/goliatone/go-userstore/docstore"
	"github.com/goliatone/go-userstore/docstore/bunstore"
)

func setupBackedStore(t *testing.T, opts ...userstore.Option) *userstore.Store {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	client := bunstore.New(bunDB)
	require.NoError(t, client.Setup(context.Background()))

	store := userstore.New(client, opts...)
	require.NoError(t, store.Start())
	return store
}

func TestUserRoundTrip(t *testing.T) {
	store := setupBackedStore(t)
	ctx := context.Background()

	// before any write there is no index, reads come back empty
	user, err := store.GetUser(ctx, "joe")
	require.NoError(t, err)
	assert.Nil(t, user)

	hasher := userstore.BcryptAuthenticator{}
	hash, err := hasher.HashPassword("s3cret!")
	require.NoError(t, err)

	created, err := store.PutUser(ctx, userstore.PutUserRequest{
		Username:     "joe",
		Roles:        []string{"admin"},
		FullName:     "Joe User",
		Email:        "joe@example.com",
		Enabled:      true,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	assert.True(t, created)

	user, err = store.GetUser(ctx, "joe")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "joe", user.Username)
	assert.Equal(t, []string{"admin"}, user.Roles)
	assert.Equal(t, "Joe User", user.FullName)
	assert.True(t, user.Enabled)

	verified, err := store.VerifyPassword(ctx, "joe", "s3cret!")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, "joe", verified.Username)

	verified, err = store.VerifyPassword(ctx, "joe", "wrong")
	require.NoError(t, err)
	assert.Nil(t, verified)

	// a put without a hash updates fields in place
	created, err = store.PutUser(ctx, userstore.PutUserRequest{
		Username: "joe",
		Roles:    []string{"admin", "ops"},
		FullName: "Joe A. User",
		Email:    "joe@example.com",
		Enabled:  true,
	})
	require.NoError(t, err)
	assert.False(t, created)

	user, err = store.GetUser(ctx, "joe")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "ops"}, user.Roles)
	assert.Equal(t, "Joe A. User", user.FullName)

	// the credential survives a field-only update
	verified, err = store.VerifyPassword(ctx, "joe", "s3cret!")
	require.NoError(t, err)
	require.NotNil(t, verified)

	found, err := store.DeleteUser(ctx, userstore.DeleteUserRequest{Username: "joe"})
	require.NoError(t, err)
	assert.True(t, found)

	user, err = store.GetUser(ctx, "joe")
	require.NoError(t, err)
	assert.Nil(t, user)

	found, err = store.DeleteUser(ctx, userstore.DeleteUserRequest{Username: "joe"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestChangePasswordRoundTrip(t *testing.T) {
	store := setupBackedStore(t)
	ctx := context.Background()

	hasher := userstore.BcryptAuthenticator{}
	oldHash, err := hasher.HashPassword("old-secret")
	require.NoError(t, err)
	newHash, err := hasher.HashPassword("new-secret")
	require.NoError(t, err)

	_, err = store.PutUser(ctx, userstore.PutUserRequest{
		Username:     "joe",
		Enabled:      true,
		PasswordHash: oldHash,
	})
	require.NoError(t, err)

	err = store.ChangePassword(ctx, userstore.ChangePasswordRequest{
		Username:     "joe",
		PasswordHash: newHash,
	})
	require.NoError(t, err)

	verified, err := store.VerifyPassword(ctx, "joe", "new-secret")
	require.NoError(t, err)
	require.NotNil(t, verified)

	verified, err = store.VerifyPassword(ctx, "joe", "old-secret")
	require.NoError(t, err)
	assert.Nil(t, verified)
}

func TestReservedUserRoundTrip(t *testing.T) {
	store := setupBackedStore(t, userstore.WithReservedUsernames("elastic", "kibana"))
	ctx := context.Background()

	// nothing stored yet
	info, err := store.GetReservedUserInfo(ctx, "elastic")
	require.NoError(t, err)
	assert.Nil(t, info)

	// disabling a reserved user that was never written seeds its record
	// with the placeholder hash
	err = store.SetEnabled(ctx, "elastic", false, docstore.RefreshDefault)
	require.NoError(t, err)

	info, err = store.GetReservedUserInfo(ctx, "elastic")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.False(t, info.Enabled)
	assert.Equal(t, userstore.DefaultReservedPasswordHash(), info.PasswordHash)

	// changing the password on another reserved user creates it enabled
	hasher := userstore.BcryptAuthenticator{}
	hash, err := hasher.HashPassword("kibana-secret")
	require.NoError(t, err)

	err = store.ChangePassword(ctx, userstore.ChangePasswordRequest{
		Username:     "kibana",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	info, err = store.GetReservedUserInfo(ctx, "kibana")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.Enabled)
	assert.Equal(t, hash, info.PasswordHash)

	infos, err := store.AllReservedUserInfo(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.False(t, infos["elastic"].Enabled)
	assert.True(t, infos["kibana"].Enabled)

	// reserved records never show up in the regular partition
	user, err := store.GetUser(ctx, "elastic")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestGetUsersOverMultiplePages(t *testing.T) {
	store := setupBackedStore(t, userstore.WithConfig(userstore.StaticConfig{
		ScrollSize:      2,
		ScrollKeepAlive: time.Minute,
	}))
	ctx := context.Background()

	for _, username := range []string{"alice", "bob", "carol", "dave", "erin"} {
		_, err := store.PutUser(ctx, userstore.PutUserRequest{
			Username:     username,
			Roles:        []string{"user"},
			Enabled:      true,
			PasswordHash: "$2a$10$notarealhashbutstoredanyway",
		})
		require.NoError(t, err)
	}

	users, err := store.GetUsers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, users, 5)

	names := make([]string, len(users))
	for i, user := range users {
		names[i] = user.Username
	}
	assert.Equal(t, []string{"alice", "bob", "carol", "dave", "erin"}, names)

	users, err = store.GetUsers(ctx, []string{"bob", "dave"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username)
	assert.Equal(t, "dave", users[1].Username)
}

func TestSetEnabledRoundTrip(t *testing.T) {
	store := setupBackedStore(t)
	ctx := context.Background()

	_, err := store.PutUser(ctx, userstore.PutUserRequest{
		Username:     "joe",
		Enabled:      true,
		PasswordHash: "$2a$10$notarealhashbutstoredanyway",
	})
	require.NoError(t, err)

	err = store.SetEnabled(ctx, "joe", false, docstore.RefreshDefault)
	require.NoError(t, err)

	user, err := store.GetUser(ctx, "joe")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.False(t, user.Enabled)

	err = store.SetEnabled(ctx, "ghost", true, docstore.RefreshDefault)
	require.Error(t, err)
	assert.True(t, userstore.IsValidation(err))
}
