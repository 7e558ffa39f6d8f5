package model

import "time"

// Punishment levels.
const (
	PunishmentLow      = "LOW"
	PunishmentMedium   = "MEDIUM"
	PunishmentCritical = "CRITICAL"
)

// Punishment types.
const (
	PunishmentRestriction   = "RESTRICTION"
	PunishmentTimeout       = "TIMEOUT"
	PunishmentUnrestriction = "Unrestriction"
)

// Punishment is a moderation action applied to a user.
type Punishment struct {
	ID             string // UUID
	Date           time.Time
	AppliedBy      int32
	AppliedTo      int32
	PunishmentType string
	Level          string
	Expires        bool
	ExpiresAt      *time.Time
	Note           string
}

// Relationship is a directed friendship edge; a pair is mutual when
// both directions exist.
type Relationship struct {
	UserID   int32
	FriendID int32
}

// HWIDRecord is the last-known machine fingerprint for a user.
type HWIDRecord struct {
	UserID int32
	Plain  string
	MAC    string
	UID    string
	Disk   string
}

// OAuthApp is a registered client application for the token endpoint.
type OAuthApp struct {
	ID                int32
	ClientID          string
	ClientSecret      string
	Name              string
	AllowedGrantTypes []string
}
