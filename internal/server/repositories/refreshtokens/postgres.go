package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts t. A digest collision inserts nothing and reports
// common.ErrDuplicateValue without aborting a surrounding transaction.
func (r *PostgresRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_hash) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, t.ID, t.UserID, t.TokenHash, t.IssuedAt, t.ExpiresAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrDuplicateValue
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrDuplicateValue
	}
	return nil
}

const selectToken = `
		SELECT id, user_id, issued_at, expires_at, replaced_by, revoked
		FROM refresh_tokens
		WHERE token_hash = $1`

func (r *PostgresRepository) find(ctx context.Context, query string, tokenHash []byte) (*models.RefreshToken, error) {
	t := &models.RefreshToken{TokenHash: tokenHash}
	var replacedBy sql.NullString

	err := r.db.QueryRowContext(ctx, query, tokenHash).
		Scan(&t.ID, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &replacedBy, &t.Revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if replacedBy.Valid {
		t.ReplacedBy = &replacedBy.String
	}
	return t, nil
}

func (r *PostgresRepository) FindByHash(ctx context.Context, tokenHash []byte) (*models.RefreshToken, error) {
	return r.find(ctx, selectToken, tokenHash)
}

func (r *PostgresRepository) FindByHashForUpdate(ctx context.Context, tokenHash []byte) (*models.RefreshToken, error) {
	return r.find(ctx, selectToken+` FOR UPDATE`, tokenHash)
}

func (r *PostgresRepository) MarkReplaced(ctx context.Context, id, successorID string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET replaced_by = $2
		WHERE id = $1 AND replaced_by IS NULL
	`
	return r.execAffected(ctx, query, id, successorID)
}

func (r *PostgresRepository) Revoke(ctx context.Context, tokenHash []byte) (bool, error) {
	return r.execAffected(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`, tokenHash)
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	return r.exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`, userID)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	// a successor still referenced by a live predecessor stays, or the
	// predecessor would lose its replaced_by and become usable again
	return r.exec(ctx, `DELETE FROM refresh_tokens t
		WHERE t.expires_at < $1
		AND NOT EXISTS (
			SELECT 1 FROM refresh_tokens p
			WHERE p.replaced_by = t.id AND p.expires_at >= $1
		)`, cutoff)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	n, err := r.exec(ctx, query, args...)
	return n > 0, err
}
