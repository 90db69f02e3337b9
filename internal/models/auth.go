package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeSession marks bearer tokens issued at login or registration
const TokenTypeSession = "session"

type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
