package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/onetimetokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var _ RepositoryManager = m

	if _, err := NewPostgresRepositoryManager(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, _ := NewPostgresRepositoryManager(db)

	if _, ok := m.Users(db).(*users.PostgresRepository); !ok {
		t.Fatal("Users() is not postgres-backed")
	}
	if _, ok := m.RefreshTokens(db).(*refreshtokens.PostgresRepository); !ok {
		t.Fatal("RefreshTokens() is not postgres-backed")
	}
	if _, ok := m.OneTimeTokens(db).(*onetimetokens.PostgresRepository); !ok {
		t.Fatal("OneTimeTokens() is not postgres-backed")
	}
	if m.Conn() != dbx.DBTX(db) {
		t.Fatal("Conn() must return the pool")
	}
}

func TestWithOneTimeStore_Overrides(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	override := onetimetokens.NewMemoryRepository()
	m, _ := NewPostgresRepositoryManager(db, WithOneTimeStore(override))

	if m.OneTimeTokens(db) != onetimetokens.Repository(override) {
		t.Fatal("override store not used")
	}
}

func TestRunInTx_CommitAndRollback(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	m, _ := NewPostgresRepositoryManager(db)

	mock.ExpectBegin()
	mock.ExpectCommit()
	if err := m.RunInTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error { return nil }); err != nil {
		t.Fatalf("RunInTx error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	if err := m.RunInTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m, _ := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m, _ := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
