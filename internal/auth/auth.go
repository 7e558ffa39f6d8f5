// Package auth validates client credentials. Clients never send the
// plaintext password: they present md5(password), and the database
// stores bcrypt over that digest. A verified bcrypt result is cached
// in Redis keyed by the presented digest so repeated logins skip the
// expensive comparison.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/ranking"
)

// UserSource looks up accounts by normalized username. Satisfied by
// db.UserRepository.
type UserSource interface {
	GetBySafeName(ctx context.Context, safe string) (*model.User, error)
}

// Authenticator resolves users and checks presented credentials.
type Authenticator struct {
	users UserSource
	cache *ranking.Client
}

// New creates an Authenticator.
func New(users UserSource, cache *ranking.Client) *Authenticator {
	return &Authenticator{users: users, cache: cache}
}

// Authenticate looks up the user and verifies the presented md5
// digest against the stored bcrypt hash. Returns nil, nil when the
// user does not exist or the credential does not match.
func (a *Authenticator) Authenticate(ctx context.Context, username, presentedMD5 string) (*model.User, error) {
	safe := model.ToSafe(username)
	user, err := a.users.GetBySafeName(ctx, safe)
	if err != nil {
		return nil, fmt.Errorf("resolving user %q: %w", safe, err)
	}
	if user == nil {
		return nil, nil
	}

	cached, err := a.cache.CachedPasswordHash(ctx, safe, presentedMD5)
	if err != nil {
		slog.Warn("reading password cache", "user", safe, "err", err)
	}
	if cached != "" && cached == user.Password {
		return user, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(presentedMD5)); err != nil {
		return nil, nil
	}
	if err := a.cache.CachePasswordHash(ctx, safe, presentedMD5, user.Password); err != nil {
		slog.Warn("caching password", "user", safe, "err", err)
	}
	return user, nil
}

// ResolveUserID maps a username to its id through the Redis cache,
// falling back to the database. Returns 0 for unknown names.
func (a *Authenticator) ResolveUserID(ctx context.Context, username string) (int32, error) {
	safe := model.ToSafe(username)
	id, err := a.cache.CachedUserID(ctx, safe)
	if err != nil {
		slog.Warn("reading id cache", "user", safe, "err", err)
	}
	if id != 0 {
		return id, nil
	}

	user, err := a.users.GetBySafeName(ctx, safe)
	if err != nil {
		return 0, fmt.Errorf("resolving user %q: %w", safe, err)
	}
	if user == nil {
		return 0, nil
	}
	if err := a.cache.CacheUserID(ctx, safe, user.ID); err != nil {
		slog.Warn("caching id", "user", safe, "err", err)
	}
	return user.ID, nil
}

// HashPassword produces the stored form of a presented md5 digest.
func HashPassword(presentedMD5 string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(presentedMD5), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}
