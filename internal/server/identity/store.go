// Package identity is the user-store collaborator: it owns identity
// records, password credentials and role membership.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

type Store struct {
	repo   users.Repository
	hasher cryptox.PasswordHasher
	dummy  string
}

// New binds a Store to repo. dummyHash is compared against when no user
// exists so that lookups of unknown emails cost the same as real ones.
func New(repo users.Repository, hasher cryptox.PasswordHasher, dummyHash string) *Store {
	return &Store{repo: repo, hasher: hasher, dummy: dummyHash}
}

// DummyHash produces a hash suitable for New.
func DummyHash(hasher cryptox.PasswordHasher) (string, error) {
	return hasher.Hash("dummy-password-for-timing")
}

// Create validates and stores a new identity with password.
func (s *Store) Create(ctx context.Context, u *models.User, password string) (*models.User, error) {
	email, err := NormalizeEmail(u.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u.Email = email
	u.PasswordHash = hash
	return s.repo.Create(ctx, u)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	return s.repo.GetByEmail(ctx, normalized)
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Store) List(ctx context.Context, offset, limit int) ([]models.User, error) {
	return s.repo.List(ctx, offset, limit)
}

// CheckPassword reports whether password matches u's credential. A nil u
// still performs a comparison and returns false.
func (s *Store) CheckPassword(u *models.User, password string) bool {
	if u == nil {
		_, _ = s.hasher.Compare(s.dummy, password)
		return false
	}
	ok, err := s.hasher.Compare(u.PasswordHash, password)
	return err == nil && ok
}

func (s *Store) EnsureRole(ctx context.Context, role string) error {
	return s.repo.EnsureRole(ctx, role)
}

func (s *Store) AddRole(ctx context.Context, u *models.User, role string) (bool, error) {
	return s.repo.AddRole(ctx, u.ID, role)
}

func (s *Store) GetRoles(ctx context.Context, u *models.User) ([]string, error) {
	return s.repo.GetRoles(ctx, u.ID)
}

func (s *Store) SetConfirmed(ctx context.Context, u *models.User) error {
	if err := s.repo.SetEmailConfirmed(ctx, u.ID); err != nil {
		return err
	}
	u.EmailConfirmed = true
	return nil
}

func (s *Store) SetPassword(ctx context.Context, u *models.User, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, u.ID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("set password for %s: %w", u.ID, err)
		}
		return err
	}
	u.PasswordHash = hash
	return nil
}
