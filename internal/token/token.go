// Package token mints and verifies the JWTs issued by the oauth
// endpoint. Every token carries an HMAC over the holder's stored
// password hash so a password change invalidates all outstanding
// tokens at once.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes.
const (
	AccessLifetime  = time.Hour
	RefreshLifetime = 14 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of every issued token.
type Claims struct {
	Hash string `json:"hash"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a shared secret.
type Issuer struct {
	secret []byte
}

// NewIssuer creates an Issuer over the HMAC secret.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// PasswordHash binds the stored bcrypt hash to the signing secret.
// The result lands in the token's hash claim.
func (i *Issuer) PasswordHash(storedHash string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(storedHash))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}

// Issue mints a signed token for the user expiring after lifetime.
func (i *Issuer) Issue(userID int32, storedHash string, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Hash: i.PasswordHash(storedHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token for %d: %w", userID, err)
	}
	return signed, nil
}

// Verify parses a token and returns its claims. Expired, malformed,
// or foreign-signed tokens fail with ErrInvalidToken.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Matches reports whether the token's hash claim still corresponds to
// the stored password hash.
func (i *Issuer) Matches(claims *Claims, storedHash string) bool {
	return hmac.Equal([]byte(claims.Hash), []byte(i.PasswordHash(storedHash)))
}
