package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/testutil"
)

type stubUsers struct {
	users map[string]*model.User
	calls int
}

func (s *stubUsers) GetBySafeName(_ context.Context, safe string) (*model.User, error) {
	s.calls++
	return s.users[safe], nil
}

func newAuthenticator(t *testing.T, users *stubUsers) *Authenticator {
	t.Helper()
	return New(users, testutil.Ranking(t))
}

func hashed(t *testing.T, presented string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(presented), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	presented := "0cc175b9c0f1b6a831c399e269772661"
	users := &stubUsers{users: map[string]*model.User{
		"alice": {ID: 1, Username: "Alice", UsernameSafe: "alice", Password: hashed(t, presented)},
	}}
	a := newAuthenticator(t, users)

	user, err := a.Authenticate(ctx, "Alice", presented)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int32(1), user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	ctx := context.Background()
	users := &stubUsers{users: map[string]*model.User{
		"alice": {ID: 1, UsernameSafe: "alice", Password: hashed(t, "right")},
	}}
	a := newAuthenticator(t, users)

	user, err := a.Authenticate(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator(t, &stubUsers{users: map[string]*model.User{}})

	user, err := a.Authenticate(ctx, "ghost", "whatever")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAuthenticateUsesCache(t *testing.T) {
	ctx := context.Background()
	presented := "0cc175b9c0f1b6a831c399e269772661"
	stored := hashed(t, presented)
	users := &stubUsers{users: map[string]*model.User{
		"alice": {ID: 1, UsernameSafe: "alice", Password: stored},
	}}
	a := newAuthenticator(t, users)

	_, err := a.Authenticate(ctx, "alice", presented)
	require.NoError(t, err)

	// Second login hits the cached verification.
	cached, err := a.cache.CachedPasswordHash(ctx, "alice", presented)
	require.NoError(t, err)
	assert.Equal(t, stored, cached)

	user, err := a.Authenticate(ctx, "alice", presented)
	require.NoError(t, err)
	require.NotNil(t, user)
}

func TestCachedHashForOldPasswordRejected(t *testing.T) {
	ctx := context.Background()
	presented := "old-digest"
	users := &stubUsers{users: map[string]*model.User{
		"alice": {ID: 1, UsernameSafe: "alice", Password: hashed(t, "new-digest")},
	}}
	a := newAuthenticator(t, users)

	// A stale cache entry pointing at a hash the user no longer has
	// must not authenticate.
	require.NoError(t, a.cache.CachePasswordHash(ctx, "alice", presented, "$2b$stale"))
	user, err := a.Authenticate(ctx, "alice", presented)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestResolveUserID(t *testing.T) {
	ctx := context.Background()
	users := &stubUsers{users: map[string]*model.User{
		"some_user": {ID: 33, UsernameSafe: "some_user"},
	}}
	a := newAuthenticator(t, users)

	id, err := a.ResolveUserID(ctx, "Some User")
	require.NoError(t, err)
	assert.Equal(t, int32(33), id)
	dbCalls := users.calls

	// Cached on the second resolve.
	id, err = a.ResolveUserID(ctx, "Some User")
	require.NoError(t, err)
	assert.Equal(t, int32(33), id)
	assert.Equal(t, dbCalls, users.calls)
}

func TestResolveUnknownUserID(t *testing.T) {
	ctx := context.Background()
	a := newAuthenticator(t, &stubUsers{users: map[string]*model.User{}})

	id, err := a.ResolveUserID(ctx, "ghost")
	require.NoError(t, err)
	assert.Zero(t, id)
}
