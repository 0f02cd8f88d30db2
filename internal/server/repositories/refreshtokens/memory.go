package refreshtokens

import (
	"context"
	"encoding/hex"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken // keyed by hex digest
	byID   map[string]string              // id -> hex digest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tokens: map[string]models.RefreshToken{},
		byID:   map[string]string{},
	}
}

// Snapshot copies the current state and returns a function restoring it.
func (r *MemoryRepository) Snapshot() (restore func()) {
	r.mu.Lock()
	tokens, byID := maps.Clone(r.tokens), maps.Clone(r.byID)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.tokens, r.byID = tokens, byID
	}
}

func (r *MemoryRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := hex.EncodeToString(t.TokenHash)
	if _, ok := r.tokens[key]; ok {
		return common.ErrDuplicateValue
	}
	if _, ok := r.byID[t.ID]; ok {
		return common.ErrDuplicateValue
	}
	r.tokens[key] = *t
	r.byID[t.ID] = key
	return nil
}

func (r *MemoryRepository) FindByHash(ctx context.Context, tokenHash []byte) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[hex.EncodeToString(tokenHash)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

// FindByHashForUpdate relies on the memory transaction runner for isolation.
func (r *MemoryRepository) FindByHashForUpdate(ctx context.Context, tokenHash []byte) (*models.RefreshToken, error) {
	return r.FindByHash(ctx, tokenHash)
}

func (r *MemoryRepository) MarkReplaced(ctx context.Context, id, successorID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	t := r.tokens[key]
	if t.ReplacedBy != nil {
		return false, nil
	}
	t.ReplacedBy = &successorID
	r.tokens[key] = t
	return true, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, tokenHash []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := hex.EncodeToString(tokenHash)
	t, ok := r.tokens[key]
	if !ok {
		return false, nil
	}
	t.Revoked = true
	r.tokens[key] = t
	return true, nil
}

func (r *MemoryRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k, t := range r.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			r.tokens[k] = t
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// successors of live predecessors are kept
	pinned := map[string]struct{}{}
	for _, t := range r.tokens {
		if t.ReplacedBy != nil && !t.ExpiresAt.Before(cutoff) {
			pinned[*t.ReplacedBy] = struct{}{}
		}
	}

	var n int64
	for k, t := range r.tokens {
		if _, ok := pinned[t.ID]; ok {
			continue
		}
		if t.ExpiresAt.Before(cutoff) {
			delete(r.tokens, k)
			delete(r.byID, t.ID)
			n++
		}
	}
	return n, nil
}
