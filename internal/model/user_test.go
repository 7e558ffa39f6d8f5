package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSafe(t *testing.T) {
	assert.Equal(t, "cookiezi", ToSafe("Cookiezi"))
	assert.Equal(t, "white_cat", ToSafe("White Cat"))
	assert.Equal(t, "a_b_c", ToSafe("A b C"))
}

func TestRestrictionStates(t *testing.T) {
	u := &User{Permissions: PermRestricted}
	assert.True(t, u.IsRestricted())
	assert.False(t, u.IsPendingVerification())

	// The restriction bit plus the pending flag means a fresh
	// account, not a punished one.
	u = &User{Permissions: PermRestricted, Flags: FlagPendingVerification}
	assert.False(t, u.IsRestricted())
	assert.True(t, u.IsPendingVerification())

	u = &User{}
	assert.False(t, u.IsRestricted())
}

func TestPermissionHelpers(t *testing.T) {
	u := &User{Permissions: PermManager | PermBeatmapModerator, Flags: FlagVerified}
	assert.True(t, u.IsManager())
	assert.True(t, u.IsBeatmapModerator())
	assert.True(t, u.IsVerified())
}
