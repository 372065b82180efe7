package database

import (
	"context"
	"fmt"
	"strings"

	"meshwars/internal/log"
)

// Migration represents a database migration
type Migration struct {
	ID          int
	Description string
	SQL         string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		ID:          1,
		Description: "Initial schema creation",
		SQL: `
CREATE TABLE IF NOT EXISTS players (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identity TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL UNIQUE,
	credits INTEGER NOT NULL DEFAULT 0,
	turns INTEGER NOT NULL DEFAULT 0,
	score INTEGER NOT NULL DEFAULT 0,
	total_warps INTEGER NOT NULL DEFAULT 0,
	total_trades INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	last_login TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sectors (
	id INTEGER PRIMARY KEY,
	warps TEXT NOT NULL DEFAULT '[]',
	port_id INTEGER REFERENCES ports(id)
);

CREATE TABLE IF NOT EXISTS ports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sector_id INTEGER NOT NULL UNIQUE REFERENCES sectors(id),
	name TEXT NOT NULL,
	credits INTEGER NOT NULL DEFAULT 0,
	inventory TEXT NOT NULL DEFAULT '{}',
	last_regeneration TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ships (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id INTEGER NOT NULL UNIQUE REFERENCES players(id),
	current_sector INTEGER NOT NULL REFERENCES sectors(id),
	cargo_holds INTEGER NOT NULL,
	cargo TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS game_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`,
	},
	{
		ID:          2,
		Description: "Index ships by sector for occupancy counts",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_ships_current_sector ON ships(current_sector);`,
	},
	// Future migrations can be added here
}

// runMigrations executes all pending migrations
func (d *Database) runMigrations(ctx context.Context) error {
	log.Debug("checking for database migrations")

	if err := d.ensureSchemaVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	currentVersion, err := d.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.ID <= currentVersion {
			continue
		}
		log.Info("applying migration", "id", migration.ID, "description", migration.Description)
		if err := d.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.ID, err)
		}
	}
	return nil
}

// ensureSchemaVersionTable creates the schema_version table if it doesn't exist
func (d *Database) ensureSchemaVersionTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	_, err := d.db.ExecContext(ctx, query)
	return err
}

// SchemaVersion returns the highest applied migration
func (d *Database) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := d.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// applyMigration applies a single migration
func (d *Database) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(migration.SQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration statement: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, migration.ID); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
