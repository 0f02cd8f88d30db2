package onetimetokens

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps one-time tokens as JSON records under
// <prefix>:<subject>:<hex secret hash>. Records outlive their expiry by
// Grace so an expired or consumed token is still reported as such instead
// of as missing.
type RedisRepository struct {
	redis  redis.UniversalClient
	prefix string
	Grace  time.Duration
}

// NewRedisRepository stores records under prefix; a trailing ':' is
// dropped since keys add their own separator.
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	prefix = strings.TrimRight(prefix, ":")
	if prefix == "" {
		prefix = "ott"
	}
	return &RedisRepository{redis: client, prefix: prefix, Grace: 24 * time.Hour}
}

type redisRecord struct {
	ID         string     `json:"id"`
	SubjectID  string     `json:"subject_id"`
	Purpose    string     `json:"purpose"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

func (r *RedisRepository) key(subjectID string, secretHash []byte) string {
	return r.prefix + ":" + subjectID + ":" + hex.EncodeToString(secretHash)
}

func (r *RedisRepository) Create(ctx context.Context, t *models.OneTimeToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	data, err := json.Marshal(redisRecord{
		ID:        t.ID,
		SubjectID: t.SubjectID,
		Purpose:   string(t.Purpose),
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
	})
	if err != nil {
		return err
	}

	ttl := time.Until(t.ExpiresAt) + r.Grace
	if ttl <= 0 {
		ttl = r.Grace
	}

	ok, err := r.redis.SetNX(ctx, r.key(t.SubjectID, t.SecretHash), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreFailure, err)
	}
	if !ok {
		return common.ErrDuplicateValue
	}
	return nil
}

func (r *RedisRepository) Consume(ctx context.Context, subjectID string, purpose models.Purpose, secretHash []byte, now time.Time) (*models.OneTimeToken, error) {
	const maxRetries = 4
	key := r.key(subjectID, secretHash)

	for i := 0; i < maxRetries; i++ {
		var consumed *models.OneTimeToken

		err := r.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var rec redisRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}

			t := &models.OneTimeToken{
				ID:         rec.ID,
				SubjectID:  rec.SubjectID,
				Purpose:    models.Purpose(rec.Purpose),
				SecretHash: secretHash,
				IssuedAt:   rec.IssuedAt,
				ExpiresAt:  rec.ExpiresAt,
				ConsumedAt: rec.ConsumedAt,
			}
			if err := classify(t, purpose, now); err != nil {
				return err
			}

			at := now
			rec.ConsumedAt = &at
			updated, err := json.Marshal(rec)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
				return nil
			})
			if err != nil {
				return err
			}

			t.ConsumedAt = &at
			consumed = t
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, common.ErrTokenNotFound
			case errors.Is(err, common.ErrPurposeMismatch),
				errors.Is(err, common.ErrTokenAlreadyUsed),
				errors.Is(err, common.ErrTokenExpired):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", common.ErrStoreFailure, err)
			}
		}

		return consumed, nil
	}

	// every retry lost the race to another consumer
	return nil, common.ErrTokenAlreadyUsed
}

// DeleteExpired is a no-op: Redis evicts records through their TTL.
func (r *RedisRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
