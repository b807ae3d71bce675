package auth

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload the marketplace signs into its bearer tokens.
type Claims struct {
	UserID *json.Number `json:"userId,omitempty"`
	Role   string       `json:"role,omitempty"`
	Email  string       `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ExpiredAt reports whether the token carries an expiry at or before now.
// Tokens without exp never expire from the client's point of view.
func (c *Claims) ExpiredAt(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}
