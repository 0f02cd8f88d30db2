// Package users declares the identity repository contract and its
// PostgreSQL and in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// List returns users ordered by creation time. limit <= 0 means no limit.
	List(ctx context.Context, offset, limit int) ([]models.User, error)

	SetEmailConfirmed(ctx context.Context, id string) error
	SetPasswordHash(ctx context.Context, id string, hash string) error

	// EnsureRole creates the role if it does not exist yet.
	EnsureRole(ctx context.Context, role string) error
	// AddRole attaches an existing role to the user. It returns false when
	// the role is unknown. Adding a role twice is not an error.
	AddRole(ctx context.Context, userID, role string) (bool, error)
	GetRoles(ctx context.Context, userID string) ([]string, error)
}
