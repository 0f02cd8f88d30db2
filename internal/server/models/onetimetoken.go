package models

import (
	"fmt"
	"time"
)

// Purpose tags what a one-time token authorizes.
type Purpose string

const (
	PurposeEmailConfirmation Purpose = "email_confirmation"
	PurposePasswordReset     Purpose = "password_reset"
)

func (p Purpose) Valid() bool {
	return p == PurposeEmailConfirmation || p == PurposePasswordReset
}

func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown token purpose %q", s)
	}
	return p, nil
}

// OneTimeToken is the stored form of a single-use token. Only the SHA-256
// digest of the secret is kept.
type OneTimeToken struct {
	ID         string
	SubjectID  string
	Purpose    Purpose
	SecretHash []byte
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

func (t *OneTimeToken) Consumed() bool { return t.ConsumedAt != nil }

func (t *OneTimeToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
