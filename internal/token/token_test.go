package token

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("test-secret")

	raw, err := iss.Issue(42, "$2b$stored", AccessLifetime)
	require.NoError(t, err)

	claims, err := iss.Verify(raw)
	require.NoError(t, err)

	sub, err := strconv.Atoi(claims.Subject)
	require.NoError(t, err)
	assert.Equal(t, 42, sub)
	assert.True(t, iss.Matches(claims, "$2b$stored"))
}

func TestPasswordChangeInvalidates(t *testing.T) {
	iss := NewIssuer("test-secret")

	raw, err := iss.Issue(42, "$2b$old", AccessLifetime)
	require.NoError(t, err)

	claims, err := iss.Verify(raw)
	require.NoError(t, err)
	assert.False(t, iss.Matches(claims, "$2b$new"))
}

func TestExpiredTokenRejected(t *testing.T) {
	iss := NewIssuer("test-secret")

	raw, err := iss.Issue(42, "$2b$stored", -time.Minute)
	require.NoError(t, err)

	_, err = iss.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestForeignSecretRejected(t *testing.T) {
	a := NewIssuer("secret-a")
	b := NewIssuer("secret-b")

	raw, err := a.Issue(42, "$2b$stored", AccessLifetime)
	require.NoError(t, err)

	_, err = b.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMalformedTokenRejected(t *testing.T) {
	iss := NewIssuer("test-secret")
	_, err := iss.Verify("definitely.not.a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
