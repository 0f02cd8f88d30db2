// Package session keeps the signed-in account and its tokens in a local
// sqlite database so the CLI can resume between runs.
package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/migrations"
	repo "github.com/dmitrijs2005/gophauth/internal/client/repositories/session"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	keyEmail        = "email"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// Session is the persisted login state.
type Session struct {
	Email        string
	AccessToken  string
	RefreshToken string
}

func (s Session) Empty() bool { return s.RefreshToken == "" }

type Store struct {
	db   *sql.DB
	repo repo.Repository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the session database at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewStore(db, repo.NewSQLiteRepository(db)), nil
}

func NewStore(db *sql.DB, r repo.Repository) *Store {
	return &Store{db: db, repo: r}
}

func (s *Store) Load(ctx context.Context) (Session, error) {
	var (
		out Session
		err error
	)
	if out.Email, err = s.repo.Get(ctx, keyEmail); err != nil {
		return Session{}, err
	}
	if out.AccessToken, err = s.repo.Get(ctx, keyAccessToken); err != nil {
		return Session{}, err
	}
	if out.RefreshToken, err = s.repo.Get(ctx, keyRefreshToken); err != nil {
		return Session{}, err
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, sess Session) error {
	for k, v := range map[string]string{
		keyEmail:        sess.Email,
		keyAccessToken:  sess.AccessToken,
		keyRefreshToken: sess.RefreshToken,
	} {
		if err := s.repo.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// SaveTokens replaces the tokens and keeps the email.
func (s *Store) SaveTokens(ctx context.Context, access, refresh string) error {
	if err := s.repo.Set(ctx, keyAccessToken, access); err != nil {
		return err
	}
	return s.repo.Set(ctx, keyRefreshToken, refresh)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
