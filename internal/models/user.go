package models

import (
	"regexp"
	"time"
	"unicode/utf8"
)

// DefaultAvatar is assigned to new accounts
const DefaultAvatar = "🎮"

// Username length bounds, counted in characters
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_а-яА-ЯёЁ]+$`)

// ValidUsername reports whether name satisfies the username rule
func ValidUsername(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= MinUsernameLength && n <= MaxUsernameLength && usernamePattern.MatchString(name)
}

type User struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	RobloxNick       string
	RobloxUserID     string
	Rod              string
	Discord          string
	Avatar           string
	AvatarURL        string
	Role             Role
	IsEmailVerified  bool
	IsRobloxVerified bool
	IsBanned         bool
	BanReason        string
	IsMuted          bool
	MuteReason       string
	MuteExpiresAt    *time.Time
	PostsCount       int
	CommentsCount    int
	Reputation       int
	IsOnline         bool
	LastSeen         *time.Time
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Level returns the user's rank in the role hierarchy
func (u *User) Level() Level {
	return LevelOf(u.Role)
}

// CanPublish returns a MutedError while the user is muted.
// Mute expiry is informational only: the flag stays until an explicit unmute.
func (u *User) CanPublish() error {
	if u.IsMuted {
		return &MutedError{Reason: u.MuteReason, ExpiresAt: u.MuteExpiresAt}
	}
	return nil
}

// ProfilePatch holds the self-editable profile fields; nil means unchanged
type ProfilePatch struct {
	Email      *string
	RobloxNick *string
	Rod        *string
	Discord    *string
	Avatar     *string
	AvatarURL  *string
}

// Apply merges the patch into the user. A changed Roblox nickname revokes
// identity verification and a changed email revokes email verification.
func (p ProfilePatch) Apply(u *User) {
	if p.RobloxNick != nil && *p.RobloxNick != u.RobloxNick {
		u.RobloxNick = *p.RobloxNick
		u.IsRobloxVerified = false
	}
	if p.Email != nil && *p.Email != u.Email {
		u.Email = *p.Email
		u.IsEmailVerified = false
	}
	if p.Rod != nil {
		u.Rod = *p.Rod
	}
	if p.Discord != nil {
		u.Discord = *p.Discord
	}
	if p.Avatar != nil && *p.Avatar != "" {
		u.Avatar = *p.Avatar
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
}

// UserFilter narrows admin user listings
type UserFilter struct {
	Search string
	Role   Role
	Limit  int
}
