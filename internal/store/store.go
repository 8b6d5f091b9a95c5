package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// catalogPragmas are applied to every connection the catalog opens.
// Foreign keys keep edge rows tied to their graph.
var catalogPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// migration upgrades a catalog created by an older schema.sql.
type migration struct {
	version int
	name    string
	stmt    string
}

// catalogMigrations run in order; user_version records the last one applied.
var catalogMigrations = []migration{
	{
		version: 1,
		name:    "index validation history by graph",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_validation_runs_graph ON validation_runs(graph_name, seq)`,
	},
	{
		version: 2,
		name:    "index validation runs by canonical graph",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_validation_runs_hash ON validation_runs(graph_hash)`,
	},
}

// currentSchemaVersion is the user_version of a fully migrated catalog.
var currentSchemaVersion = catalogMigrations[len(catalogMigrations)-1].version

// Store is the graph catalog: canonical graphs, their edge tables, and the
// history of validation runs.
type Store struct {
	db *sql.DB
}

// Open opens the catalog at path, creating it when missing, and brings its
// schema up to date. ":memory:" gives a private in-memory catalog.
//
// The catalog runs in WAL mode behind a single connection so that one
// validation writer never sees SQLITE_BUSY.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, pragma := range catalogPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return migrate(db)
}

// migrate applies every catalog migration newer than the stored
// user_version, each in its own transaction.
func migrate(db *sql.DB) error {
	var applied int
	if err := db.QueryRow("PRAGMA user_version").Scan(&applied); err != nil {
		return fmt.Errorf("read catalog version: %w", err)
	}

	for _, m := range catalogMigrations {
		if m.version <= applied {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): record version: %w", m.version, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

// Close releases the catalog. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pragma reads the current value of a catalog pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
