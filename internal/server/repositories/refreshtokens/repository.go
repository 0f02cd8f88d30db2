// Package refreshtokens declares the server-side repository contract for
// refresh token records and its PostgreSQL and in-memory implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository stores refresh tokens by the SHA-256 digest of their value.
type Repository interface {
	// Create inserts t. A digest collision yields common.ErrDuplicateValue.
	Create(ctx context.Context, t *models.RefreshToken) error

	// FindByHash returns the token or common.ErrorNotFound.
	FindByHash(ctx context.Context, tokenHash []byte) (*models.RefreshToken, error)

	// FindByHashForUpdate is FindByHash that also locks the row until the
	// surrounding transaction ends.
	FindByHashForUpdate(ctx context.Context, tokenHash []byte) (*models.RefreshToken, error)

	// MarkReplaced links id to its successor. It returns false when id was
	// already replaced, so only one rotation of a token can win.
	MarkReplaced(ctx context.Context, id, successorID string) (bool, error)

	// Revoke revokes the token with the given digest; false means no such token.
	Revoke(ctx context.Context, tokenHash []byte) (bool, error)

	// RevokeAllForUser revokes every non-revoked token of userID.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes tokens that expired before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
