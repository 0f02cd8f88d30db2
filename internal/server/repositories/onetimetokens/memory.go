package onetimetokens

import (
	"context"
	"encoding/hex"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]models.OneTimeToken // keyed by hex secret hash
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: map[string]models.OneTimeToken{}}
}

// Snapshot copies the current state and returns a function restoring it.
func (r *MemoryRepository) Snapshot() (restore func()) {
	r.mu.Lock()
	tokens := maps.Clone(r.tokens)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.tokens = tokens
	}
}

func (r *MemoryRepository) Create(ctx context.Context, t *models.OneTimeToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := hex.EncodeToString(t.SecretHash)
	if _, ok := r.tokens[key]; ok {
		return common.ErrDuplicateValue
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r.tokens[key] = *t
	return nil
}

func (r *MemoryRepository) Consume(ctx context.Context, subjectID string, purpose models.Purpose, secretHash []byte, now time.Time) (*models.OneTimeToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := hex.EncodeToString(secretHash)
	t, ok := r.tokens[key]
	if !ok || t.SubjectID != subjectID {
		return nil, common.ErrTokenNotFound
	}
	if err := classify(&t, purpose, now); err != nil {
		return nil, err
	}

	consumed := now
	t.ConsumedAt = &consumed
	r.tokens[key] = t
	return &t, nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}
