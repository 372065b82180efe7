package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"meshwars/internal/log"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx, so every query helper
// runs unchanged inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every read and write the engine performs against the store
type Queries struct {
	q   querier
	now func() time.Time
}

// Database is the SQLite-backed store for players, ships, the universe and game flags
type Database struct {
	*Queries
	db   *sql.DB
	path string
}

var sq = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Open opens (creating if needed) the SQLite database at path and brings its
// schema up to date. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Database, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases alive across calls and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &Database{
		Queries: &Queries{q: db, now: time.Now},
		db:      db,
		path:    path,
	}
	if err := d.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("database opened", "path", path)
	return d, nil
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SetClock overrides the time source used for timestamps
func (d *Database) SetClock(now func() time.Time) {
	d.Queries.now = now
}

// WithTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (d *Database) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{q: tx, now: d.Queries.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
