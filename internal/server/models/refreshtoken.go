package models

import "time"

// RefreshToken is a server-side session record. TokenHash is the SHA-256
// digest of the opaque value handed to the client.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  []byte
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ReplacedBy *string
	Revoked    bool
}

// Usable reports whether the token may still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && t.ReplacedBy == nil && now.Before(t.ExpiresAt)
}
