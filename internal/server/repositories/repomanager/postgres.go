// Package repomanager provides RepositoryManager implementations for
// PostgreSQL and for process memory, wiring together repository
// constructors, transactions and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/onetimetokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	db       *sql.DB
	tx       dbx.TxRunner
	oneTimes onetimetokens.Repository
}

// Option customizes a PostgresRepositoryManager.
type Option func(*PostgresRepositoryManager)

// WithOneTimeStore makes OneTimeTokens return repo regardless of the
// handle passed in, e.g. a Redis-backed store.
func WithOneTimeStore(repo onetimetokens.Repository) Option {
	return func(m *PostgresRepositoryManager) { m.oneTimes = repo }
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB, opts ...Option) (*PostgresRepositoryManager, error) {
	if db == nil {
		return nil, fmt.Errorf("nil database handle")
	}
	m := &PostgresRepositoryManager{db: db, tx: dbx.NewSQLTxRunner(db)}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// OpenPostgres opens a pgx-backed *sql.DB for dsn and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// OneTimeTokens returns a onetimetokens.Repository bound to the provided DBTX,
// or the configured override store.
func (m *PostgresRepositoryManager) OneTimeTokens(db dbx.DBTX) onetimetokens.Repository {
	if m.oneTimes != nil {
		return m.oneTimes
	}
	return onetimetokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Conn() dbx.DBTX { return m.db }

func (m *PostgresRepositoryManager) RunInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return m.tx.RunInTx(ctx, fn)
}

func (m *PostgresRepositoryManager) Close() error { return m.db.Close() }

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the manager's database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}
