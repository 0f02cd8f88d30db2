// Package seed provisions the roles and bootstrap accounts a fresh
// installation needs. Every step checks for existing state first, so it is
// safe to run on every start.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/identity"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// DefaultPassword is the password of the bootstrap accounts.
const DefaultPassword = "Qwerty-1"

// Account is a bootstrap identity.
type Account struct {
	Email    string
	Name     string
	Surname  string
	Password string
	Role     string
}

// DefaultAccounts are created when account seeding is enabled.
var DefaultAccounts = []Account{
	{Email: "master@email.com", Name: "John", Surname: "Snow", Password: DefaultPassword, Role: common.RoleAdministrators},
	{Email: "user@email.com", Name: "Bart", Surname: "Simpson", Password: DefaultPassword, Role: common.RoleUsers},
}

// DefaultRoles always exist after Provision.
var DefaultRoles = []string{common.RoleAdministrators, common.RoleUsers}

// Provision ensures DefaultRoles and, when accounts is non-empty, the given
// accounts. Existing accounts are left untouched. It returns the number of
// accounts created.
func Provision(ctx context.Context, rm repomanager.RepositoryManager, hasher cryptox.PasswordHasher, log logging.Logger, accounts []Account) (int, error) {
	log = log.With("module", "seed")
	conn := rm.Conn()

	for _, role := range DefaultRoles {
		if err := rm.Users(conn).EnsureRole(ctx, role); err != nil {
			return 0, fmt.Errorf("ensure role %s: %w", role, err)
		}
	}

	created := 0
	for _, a := range accounts {
		ok, err := provisionAccount(ctx, rm, hasher, a)
		if err != nil {
			return created, fmt.Errorf("provision %s: %w", a.Email, err)
		}
		if ok {
			created++
			log.Info(ctx, "bootstrap account created", "email", a.Email, "role", a.Role)
		} else {
			log.Debug(ctx, "bootstrap account exists", "email", a.Email)
		}
	}
	return created, nil
}

func provisionAccount(ctx context.Context, rm repomanager.RepositoryManager, hasher cryptox.PasswordHasher, a Account) (bool, error) {
	created := false
	err := rm.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		store := identity.New(rm.Users(tx), hasher, "")

		_, err := store.FindByEmail(ctx, a.Email)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		u, err := store.Create(ctx, &models.User{Email: a.Email, Name: a.Name, Surname: a.Surname}, a.Password)
		if err != nil {
			return err
		}
		added, err := store.AddRole(ctx, u, a.Role)
		if err != nil {
			return err
		}
		if !added {
			return fmt.Errorf("role %s: %w", a.Role, common.ErrorNotFound)
		}
		if err := store.SetConfirmed(ctx, u); err != nil {
			return err
		}

		created = true
		return nil
	})
	return created, err
}
