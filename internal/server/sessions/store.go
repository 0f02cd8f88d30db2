// Package sessions issues access/refresh token pairs and owns the refresh
// token lifecycle: persistence, rotation with reuse detection, and
// revocation.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/tokencodec"
	"github.com/google/uuid"
)

// RefreshSecretSize is the number of random bytes behind a refresh token value.
const RefreshSecretSize = 32

// Backend is the storage the RefreshStore needs; a repository manager
// satisfies it.
type Backend interface {
	dbx.TxRunner
	Conn() dbx.DBTX
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}

// IssuedRefresh is a stored refresh token and the opaque value handed to
// the client. Only the digest of the value is persisted.
type IssuedRefresh struct {
	Token *models.RefreshToken
	Value string
}

type RefreshStore struct {
	backend Backend
	log     logging.Logger
	now     func() time.Time
}

func NewRefreshStore(backend Backend, log logging.Logger) *RefreshStore {
	return &RefreshStore{backend: backend, log: log.With("module", "refresh_store"), now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *RefreshStore) WithClock(now func() time.Time) *RefreshStore {
	s.now = now
	return s
}

// hashValue maps a client-presented value to its storage digest.
func hashValue(value string) ([]byte, error) {
	raw, err := tokencodec.Decode(value)
	if err != nil {
		return nil, err
	}
	if len(raw) != RefreshSecretSize {
		return nil, common.ErrMalformedToken
	}
	return common.HashSecret(raw), nil
}

// newToken generates a fresh value for userID without persisting it.
func (s *RefreshStore) newToken(userID string, ttl time.Duration) *IssuedRefresh {
	raw := common.GenerateRandByteArray(RefreshSecretSize)
	defer common.WipeByteArray(raw)

	now := s.now()
	return &IssuedRefresh{
		Token: &models.RefreshToken{
			ID:        uuid.NewString(),
			UserID:    userID,
			TokenHash: common.HashSecret(raw),
			IssuedAt:  now,
			ExpiresAt: now.Add(ttl),
		},
		Value: tokencodec.Encode(raw),
	}
}

// Save persists a new token record. A digest collision yields
// common.ErrDuplicateValue; the caller should regenerate.
func (s *RefreshStore) Save(ctx context.Context, t *models.RefreshToken) error {
	return s.backend.RefreshTokens(s.backend.Conn()).Create(ctx, t)
}

// FindByValue returns the record for a client-presented value.
func (s *RefreshStore) FindByValue(ctx context.Context, value string) (*models.RefreshToken, error) {
	hash, err := hashValue(value)
	if err != nil {
		return nil, err
	}
	t, err := s.backend.RefreshTokens(s.backend.Conn()).FindByHash(ctx, hash)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrTokenNotFound
	}
	return t, err
}

// Rotate exchanges oldValue for a successor valid for newTTL.
//
// Presenting a token that already has a successor is treated as theft:
// every token of its owner is revoked, the revocation is committed, and
// common.ErrTokenReuseDetected is returned. Otherwise the failures are
// common.ErrTokenNotFound, common.ErrTokenRevoked and common.ErrTokenExpired.
func (s *RefreshStore) Rotate(ctx context.Context, oldValue string, newTTL time.Duration) (*IssuedRefresh, error) {
	return s.RotateWith(ctx, oldValue, newTTL, nil)
}

// RotateWith is Rotate that also runs within inside the rotation
// transaction once the presented token is known to be usable. An error
// from within aborts the rotation and leaves the presented token valid.
func (s *RefreshStore) RotateWith(ctx context.Context, oldValue string, newTTL time.Duration, within func(ctx context.Context, tx dbx.DBTX, subjectID string) error) (*IssuedRefresh, error) {
	hash, err := hashValue(oldValue)
	if err != nil {
		return nil, err
	}

	var (
		next    *IssuedRefresh
		reused  bool
		subject string
	)

	err = s.backend.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		next, reused, subject = nil, false, ""
		repo := s.backend.RefreshTokens(tx)

		old, err := repo.FindByHashForUpdate(ctx, hash)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenNotFound
			}
			return err
		}
		subject = old.UserID

		if old.ReplacedBy != nil {
			reused = true
			_, err := repo.RevokeAllForUser(ctx, old.UserID)
			return err
		}
		if old.Revoked {
			return common.ErrTokenRevoked
		}
		if !s.now().Before(old.ExpiresAt) {
			return common.ErrTokenExpired
		}
		if within != nil {
			if err := within(ctx, tx, old.UserID); err != nil {
				return err
			}
		}

		candidate := s.newToken(old.UserID, newTTL)
		if err := repo.Create(ctx, candidate.Token); err != nil {
			return err
		}

		won, err := repo.MarkReplaced(ctx, old.ID, candidate.Token.ID)
		if err != nil {
			return err
		}
		if !won {
			reused = true
			_, err := repo.RevokeAllForUser(ctx, old.UserID)
			return err
		}

		next = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reused {
		s.log.Warn(ctx, "refresh token reuse detected, all sessions revoked", "user_id", subject)
		return nil, common.ErrTokenReuseDetected
	}
	return next, nil
}

// Revoke revokes the token behind value. Unknown values are ignored.
func (s *RefreshStore) Revoke(ctx context.Context, value string) error {
	hash, err := hashValue(value)
	if err != nil {
		return err
	}
	_, err = s.backend.RefreshTokens(s.backend.Conn()).Revoke(ctx, hash)
	return err
}

// RevokeAll revokes every live token of subjectID.
func (s *RefreshStore) RevokeAll(ctx context.Context, subjectID string) (int64, error) {
	return s.RevokeAllIn(ctx, s.backend.Conn(), subjectID)
}

// RevokeAllIn is RevokeAll bound to db, typically a transaction.
func (s *RefreshStore) RevokeAllIn(ctx context.Context, db dbx.DBTX, subjectID string) (int64, error) {
	return s.backend.RefreshTokens(db).RevokeAllForUser(ctx, subjectID)
}
