package users

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is a process-local Repository used by the memory
// backend and by tests.
type MemoryRepository struct {
	mu        sync.Mutex
	users     map[string]models.User
	byEmail   map[string]string
	roles     map[string]struct{}
	userRoles map[string]map[string]struct{}
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     map[string]models.User{},
		byEmail:   map[string]string{},
		roles:     map[string]struct{}{},
		userRoles: map[string]map[string]struct{}{},
		now:       time.Now,
	}
}

// Snapshot copies the current state and returns a function restoring it.
func (r *MemoryRepository) Snapshot() (restore func()) {
	r.mu.Lock()
	users := maps.Clone(r.users)
	byEmail := maps.Clone(r.byEmail)
	roles := maps.Clone(r.roles)
	userRoles := make(map[string]map[string]struct{}, len(r.userRoles))
	for k, v := range r.userRoles {
		userRoles[k] = maps.Clone(v)
	}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.users, r.byEmail, r.roles, r.userRoles = users, byEmail, roles, userRoles
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}

	user.ID = uuid.NewString()
	user.CreatedAt = r.now()
	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID

	return user, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := r.users[id]
	return &u, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) List(ctx context.Context, offset, limit int) ([]models.User, error) {
	r.mu.Lock()
	all := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.User{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) update(id string, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&u)
	r.users[id] = u
	return nil
}

func (r *MemoryRepository) SetEmailConfirmed(ctx context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.EmailConfirmed = true })
}

func (r *MemoryRepository) SetPasswordHash(ctx context.Context, id string, hash string) error {
	return r.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (r *MemoryRepository) EnsureRole(ctx context.Context, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role] = struct{}{}
	return nil
}

func (r *MemoryRepository) AddRole(ctx context.Context, userID, role string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[role]; !ok {
		return false, nil
	}
	if _, ok := r.users[userID]; !ok {
		return false, common.ErrorNotFound
	}
	set, ok := r.userRoles[userID]
	if !ok {
		set = map[string]struct{}{}
		r.userRoles[userID] = set
	}
	set[role] = struct{}{}
	return true, nil
}

func (r *MemoryRepository) GetRoles(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roles := make([]string, 0, len(r.userRoles[userID]))
	for role := range r.userRoles[userID] {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles, nil
}
