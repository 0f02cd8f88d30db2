// Package onetimetokens stores single-use tokens (email confirmation,
// password reset). Every backend consumes a token with one atomic
// check-and-set so concurrent attempts on the same secret yield exactly one
// success.
package onetimetokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create persists t. A secret hash collision yields common.ErrDuplicateValue.
	Create(ctx context.Context, t *models.OneTimeToken) error

	// Consume marks the token identified by subjectID and secretHash as used
	// at now, provided it carries purpose, is unconsumed and unexpired.
	// Failures: common.ErrTokenNotFound, common.ErrPurposeMismatch,
	// common.ErrTokenAlreadyUsed, common.ErrTokenExpired, in that order of
	// precedence.
	Consume(ctx context.Context, subjectID string, purpose models.Purpose, secretHash []byte, now time.Time) (*models.OneTimeToken, error)

	// DeleteExpired removes tokens that expired before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// classify explains why a token could not be consumed.
func classify(t *models.OneTimeToken, purpose models.Purpose, now time.Time) error {
	switch {
	case t.Purpose != purpose:
		return common.ErrPurposeMismatch
	case t.Consumed():
		return common.ErrTokenAlreadyUsed
	case t.Expired(now):
		return common.ErrTokenExpired
	}
	return nil
}
