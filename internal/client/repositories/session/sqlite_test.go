package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE session (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewSQLiteRepository(openDB(t))

	v, err := r.Get(ctx, "refresh_token")
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, r.Set(ctx, "refresh_token", "a"))
	require.NoError(t, r.Set(ctx, "refresh_token", "b"))
	require.NoError(t, r.Set(ctx, "email", "bob@x.com"))

	v, err = r.Get(ctx, "refresh_token")
	require.NoError(t, err)
	require.Equal(t, "b", v)

	require.NoError(t, r.Delete(ctx, "refresh_token"))
	v, err = r.Get(ctx, "refresh_token")
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, r.Clear(ctx))
	v, err = r.Get(ctx, "email")
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestSQLiteRepository_WrapsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectQuery(`SELECT value FROM session WHERE key = \?`).WithArgs("k").WillReturnError(boom)
	mock.ExpectExec(`INSERT INTO session`).WithArgs("k", "v").WillReturnError(boom)
	mock.ExpectExec(`DELETE FROM session WHERE key = \?`).WithArgs("k").WillReturnError(boom)
	mock.ExpectExec(`DELETE FROM session`).WillReturnError(boom)

	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err = r.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, r.Set(ctx, "k", "v"), boom)
	require.ErrorIs(t, r.Delete(ctx, "k"), boom)
	require.ErrorIs(t, r.Clear(ctx), boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
