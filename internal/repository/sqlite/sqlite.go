// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// The driver is modernc.org/sqlite, a pure Go port of SQLite; no CGo.
//
// CONNECTIONS AND TRANSACTIONS:
// The pool is capped at a single connection. SQLite serialises writers anyway,
// and with one connection an in-memory database (":memory:") is one database
// rather than one per pooled connection. The flip side is that code running
// inside WithTx must use the Repositories it is handed; reaching for the
// outer DB would wait on the connection the transaction already holds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/todo-tracker/internal/repository"
	"github.com/sakif/todo-tracker/internal/repository/migrations"
)

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// querier is the subset of *sql.DB and *sql.Tx the repositories use, so the
// same methods run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and provides repository methods.
// Inside WithTx, q is the transaction; otherwise it is conn itself.
type DB struct {
	conn *sql.DB
	q    querier
}

// pragmas are applied by the driver to every new connection.
//
//   - foreign_keys: off by default in SQLite; needed for ON DELETE SET NULL.
//   - busy_timeout: wait up to 5s on a locked database instead of failing.
//   - journal_mode=WAL: readers don't block the writer (file databases only).
var pragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_time_format=sqlite",
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/todo.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := migrations.UpSQLite(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn, q: conn}, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(pragmas, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// WithTx runs fn in a transaction. A nested call reuses the open transaction.
func (db *DB) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if _, inTx := db.q.(*sql.Tx); inTx {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit returns sql.ErrTxDone and does nothing.
	defer tx.Rollback()

	if err := fn(&DB{conn: db.conn, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// exactly the given column list, e.g. "categories.user_id, categories.name".
// Foreign key, CHECK and NOT NULL failures never match.
func isUniqueViolation(err error, columns string) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if code := se.Code(); code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	return strings.Contains(se.Error(), "UNIQUE constraint failed: "+columns)
}

// now is the timestamp the repositories fall back to when the caller did not
// set one. Stored times are UTC at microsecond precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func nullable[T any](n sql.Null[T]) *T {
	if !n.Valid {
		return nil
	}
	v := n.V
	return &v
}
