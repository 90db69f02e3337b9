package models

import (
	"time"
)

// MaxEmailCodeAttempts is how many wrong guesses burn a code
const MaxEmailCodeAttempts = 5

// EmailCode is a one-time numeric code sent to confirm an email address
type EmailCode struct {
	ID        string
	UserID    string
	Email     string
	CodeHash  string // bcrypt hash, the plain code is never stored
	ExpiresAt time.Time
	UsedAt    *time.Time
	Attempts  int
	CreatedAt time.Time
}

// IsExpired checks if the code has expired
func (c *EmailCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsUsed checks if the code has already been used
func (c *EmailCode) IsUsed() bool {
	return c.UsedAt != nil
}

// IsExhausted reports whether wrong guesses used up the code
func (c *EmailCode) IsExhausted() bool {
	return c.Attempts >= MaxEmailCodeAttempts
}

// IsValid checks if the code can still be redeemed
func (c *EmailCode) IsValid() bool {
	return !c.IsExpired() && !c.IsUsed() && !c.IsExhausted()
}
