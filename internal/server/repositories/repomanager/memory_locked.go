package repomanager

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/onetimetokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// Repositories handed out for Conn() take the transaction lock per call, so
// they never interleave with a running transaction or its rollback.

func locked[T any](mu *sync.Mutex, fn func() (T, error)) (T, error) {
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func lockedErr(mu *sync.Mutex, fn func() error) error {
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

type lockedUsers struct {
	mu   *sync.Mutex
	repo users.Repository
}

func (l lockedUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return locked(l.mu, func() (*models.User, error) { return l.repo.Create(ctx, user) })
}

func (l lockedUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return locked(l.mu, func() (*models.User, error) { return l.repo.GetByEmail(ctx, email) })
}

func (l lockedUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return locked(l.mu, func() (*models.User, error) { return l.repo.GetByID(ctx, id) })
}

func (l lockedUsers) List(ctx context.Context, offset, limit int) ([]models.User, error) {
	return locked(l.mu, func() ([]models.User, error) { return l.repo.List(ctx, offset, limit) })
}

func (l lockedUsers) SetEmailConfirmed(ctx context.Context, id string) error {
	return lockedErr(l.mu, func() error { return l.repo.SetEmailConfirmed(ctx, id) })
}

func (l lockedUsers) SetPasswordHash(ctx context.Context, id string, hash string) error {
	return lockedErr(l.mu, func() error { return l.repo.SetPasswordHash(ctx, id, hash) })
}

func (l lockedUsers) EnsureRole(ctx context.Context, role string) error {
	return lockedErr(l.mu, func() error { return l.repo.EnsureRole(ctx, role) })
}

func (l lockedUsers) AddRole(ctx context.Context, userID, role string) (bool, error) {
	return locked(l.mu, func() (bool, error) { return l.repo.AddRole(ctx, userID, role) })
}

func (l lockedUsers) GetRoles(ctx context.Context, userID string) ([]string, error) {
	return locked(l.mu, func() ([]string, error) { return l.repo.GetRoles(ctx, userID) })
}

type lockedRefreshTokens struct {
	mu   *sync.Mutex
	repo refreshtokens.Repository
}

func (l lockedRefreshTokens) Create(ctx context.Context, t *models.RefreshToken) error {
	return lockedErr(l.mu, func() error { return l.repo.Create(ctx, t) })
}

func (l lockedRefreshTokens) FindByHash(ctx context.Context, tokenHash []byte) (*models.RefreshToken, error) {
	return locked(l.mu, func() (*models.RefreshToken, error) { return l.repo.FindByHash(ctx, tokenHash) })
}

func (l lockedRefreshTokens) FindByHashForUpdate(ctx context.Context, tokenHash []byte) (*models.RefreshToken, error) {
	return locked(l.mu, func() (*models.RefreshToken, error) { return l.repo.FindByHashForUpdate(ctx, tokenHash) })
}

func (l lockedRefreshTokens) MarkReplaced(ctx context.Context, id, successorID string) (bool, error) {
	return locked(l.mu, func() (bool, error) { return l.repo.MarkReplaced(ctx, id, successorID) })
}

func (l lockedRefreshTokens) Revoke(ctx context.Context, tokenHash []byte) (bool, error) {
	return locked(l.mu, func() (bool, error) { return l.repo.Revoke(ctx, tokenHash) })
}

func (l lockedRefreshTokens) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	return locked(l.mu, func() (int64, error) { return l.repo.RevokeAllForUser(ctx, userID) })
}

func (l lockedRefreshTokens) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return locked(l.mu, func() (int64, error) { return l.repo.DeleteExpired(ctx, cutoff) })
}

type lockedOneTimeTokens struct {
	mu   *sync.Mutex
	repo onetimetokens.Repository
}

func (l lockedOneTimeTokens) Create(ctx context.Context, t *models.OneTimeToken) error {
	return lockedErr(l.mu, func() error { return l.repo.Create(ctx, t) })
}

func (l lockedOneTimeTokens) Consume(ctx context.Context, subjectID string, purpose models.Purpose, secretHash []byte, now time.Time) (*models.OneTimeToken, error) {
	return locked(l.mu, func() (*models.OneTimeToken, error) {
		return l.repo.Consume(ctx, subjectID, purpose, secretHash, now)
	})
}

func (l lockedOneTimeTokens) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return locked(l.mu, func() (int64, error) { return l.repo.DeleteExpired(ctx, cutoff) })
}
