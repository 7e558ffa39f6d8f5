package model

import (
	"strings"
	"time"
)

// Permission bits.
const (
	PermManager          = 1
	PermBeatmapModerator = 4
	PermRestricted       = 8
)

// Flag bits.
const (
	FlagVerified            = 2
	FlagPendingVerification = 32
)

// User is an account row.
type User struct {
	ID              int32
	Username        string
	UsernameSafe    string
	Password        string // bcrypt over md5(password)
	Country         string
	Permissions     int32
	Flags           int32
	CreatedAt       time.Time
	LastSeen        time.Time
	DonorUntil      *time.Time
	BackgroundURL   *string
	UsernameHistory []string
	UserpageContent string
	Coins           int32
}

// ToSafe normalizes a username for lookups: lowercased, spaces
// replaced with underscores.
func ToSafe(username string) string {
	return strings.ReplaceAll(strings.ToLower(username), " ", "_")
}

// IsRestricted reports whether the restriction is in force. A user
// pending verification carries the bit but is not treated as
// restricted yet.
func (u *User) IsRestricted() bool {
	return u.Permissions&PermRestricted != 0 && u.Flags&FlagPendingVerification == 0
}

// IsPendingVerification reports a fresh account awaiting first login.
func (u *User) IsPendingVerification() bool {
	return u.Permissions&PermRestricted != 0 && u.Flags&FlagPendingVerification != 0
}

func (u *User) IsVerified() bool {
	return u.Flags&FlagVerified != 0
}

func (u *User) IsManager() bool {
	return u.Permissions&PermManager != 0
}

func (u *User) IsBeatmapModerator() bool {
	return u.Permissions&PermBeatmapModerator != 0
}
