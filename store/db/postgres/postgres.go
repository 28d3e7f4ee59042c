package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/edenrobotics/egograph/internal/profile"
	"github.com/edenrobotics/egograph/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database for the given profile.
// The pgvector extension is required for embedding similarity search.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := pgDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	driver := DB{db: pgDB, profile: profile}
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
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'memory_node')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

const embeddingDimensions = 1024

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS memory_node (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		node_type TEXT NOT NULL DEFAULT 'memory',
		importance DOUBLE PRECISION NOT NULL,
		user_id TEXT,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_node_user_id ON memory_node (user_id)`,
	`CREATE TABLE IF NOT EXISTS edge (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		edge_type TEXT NOT NULL DEFAULT 'default',
		weight DOUBLE PRECISION NOT NULL,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL,
		UNIQUE(source, target, edge_type)
	)`,
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS node_embedding (
		id BIGSERIAL PRIMARY KEY,
		node_id TEXT NOT NULL,
		model TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_ts BIGINT NOT NULL,
		UNIQUE(node_id, model)
	)`, embeddingDimensions),
	`CREATE TABLE IF NOT EXISTS episodic_memory (
		id BIGSERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		node_type TEXT NOT NULL DEFAULT 'memory',
		importance DOUBLE PRECISION NOT NULL,
		user_id TEXT,
		created_ts BIGINT NOT NULL
	)`,
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS episodic_memory_embedding (
		id BIGSERIAL PRIMARY KEY,
		episodic_memory_id BIGINT NOT NULL,
		model TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL,
		UNIQUE(episodic_memory_id, model)
	)`, embeddingDimensions),
	`CREATE TABLE IF NOT EXISTS personality (
		trait TEXT PRIMARY KEY,
		value DOUBLE PRECISION NOT NULL,
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

// placeholder returns the positional parameter for the given 1-based index.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns a comma-joined list of positional parameters $1..$n.
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
