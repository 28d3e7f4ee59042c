package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/edenrobotics/egograph/internal/profile"
	"github.com/edenrobotics/egograph/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database for the given profile.
//
// Notes:
//   - WAL journal mode prevents locking issues for the single-writer workload.
//   - When using the `modernc.org/sqlite` driver, each pragma must be prefixed
//     with `_pragma=`.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite: a single connection is optimal with WAL for a local file.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='memory_node')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS memory_node (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		node_type TEXT NOT NULL DEFAULT 'memory',
		importance REAL NOT NULL,
		user_id TEXT,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_node_user_id ON memory_node (user_id)`,
	`CREATE TABLE IF NOT EXISTS edge (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		edge_type TEXT NOT NULL DEFAULT 'default',
		weight REAL NOT NULL,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL,
		UNIQUE(source, target, edge_type)
	)`,
	`CREATE TABLE IF NOT EXISTS node_embedding (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node_id TEXT NOT NULL,
		model TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_ts BIGINT NOT NULL,
		UNIQUE(node_id, model)
	)`,
	`CREATE TABLE IF NOT EXISTS episodic_memory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		node_type TEXT NOT NULL DEFAULT 'memory',
		importance REAL NOT NULL,
		user_id TEXT,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS episodic_memory_embedding (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		episodic_memory_id INTEGER NOT NULL,
		model TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL,
		UNIQUE(episodic_memory_id, model)
	)`,
	`CREATE TABLE IF NOT EXISTS personality (
		trait TEXT PRIMARY KEY,
		value REAL NOT NULL,
		updated_ts BIGINT NOT NULL
	)`,
}

// Migrate applies the schema. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply schema")
		}
	}
	return nil
}
