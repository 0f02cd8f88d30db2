package onetimetokens

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

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts t. A secret hash collision is skipped with ON CONFLICT
// rather than raised, so the surrounding transaction stays usable and the
// caller can retry with a new secret.
func (r *PostgresRepository) Create(ctx context.Context, t *models.OneTimeToken) error {
	query := `
		INSERT INTO one_time_tokens (subject_id, purpose, secret_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (secret_hash) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		t.SubjectID, string(t.Purpose), t.SecretHash, t.IssuedAt, t.ExpiresAt).Scan(&t.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsUniqueViolation(err) {
			return common.ErrDuplicateValue
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, subjectID string, purpose models.Purpose, secretHash []byte, now time.Time) (*models.OneTimeToken, error) {
	query := `
		UPDATE one_time_tokens
		SET consumed_at = $4
		WHERE subject_id = $1 AND secret_hash = $3 AND purpose = $2
		  AND consumed_at IS NULL AND expires_at > $4
		RETURNING id, issued_at, expires_at
	`
	t := &models.OneTimeToken{SubjectID: subjectID, Purpose: purpose, SecretHash: secretHash}
	err := r.db.QueryRowContext(ctx, query, subjectID, string(purpose), secretHash, now).
		Scan(&t.ID, &t.IssuedAt, &t.ExpiresAt)
	if err == nil {
		consumed := now
		t.ConsumedAt = &consumed
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return nil, r.explain(ctx, subjectID, purpose, secretHash, now)
}

// explain runs after a conditional update matched nothing and reports why.
func (r *PostgresRepository) explain(ctx context.Context, subjectID string, purpose models.Purpose, secretHash []byte, now time.Time) error {
	query := `
		SELECT purpose, expires_at, consumed_at
		FROM one_time_tokens
		WHERE subject_id = $1 AND secret_hash = $2
	`
	var (
		p          string
		consumedAt sql.NullTime
		t          models.OneTimeToken
	)
	err := r.db.QueryRowContext(ctx, query, subjectID, secretHash).Scan(&p, &t.ExpiresAt, &consumedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrTokenNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	t.Purpose = models.Purpose(p)
	if consumedAt.Valid {
		t.ConsumedAt = &consumedAt.Time
	}
	if err := classify(&t, purpose, now); err != nil {
		return err
	}
	// the row became consumable after the update ran; treat as a lost race
	return common.ErrTokenAlreadyUsed
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM one_time_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
