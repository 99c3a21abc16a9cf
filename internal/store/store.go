package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// CurrentSchemaVersion is the schema_meta.version this build requires.
const CurrentSchemaVersion = 1

// Config controls the connection parameters named in spec.md §6/§4.7.
type Config struct {
	MaxConnections int  // default 10
	BusyTimeoutMs  int  // default 5000
	UseWAL         bool // default true
	CacheSize      int  // negative => KiB, positive => pages, per sqlite convention
	Synchronous    int  // 0=OFF 1=NORMAL 2=FULL 3=EXTRA
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxConnections: 10,
		BusyTimeoutMs:  5000,
		UseWAL:         true,
		CacheSize:      -2000,
		Synchronous:    1,
	}
}

// Store is the SQLite data access layer for the extractor.db relational
// store (spec.md §4.7).
type Store struct {
	db  *sql.DB
	cfg Config
}

// SchemaVersionMismatch is returned by Migrate when an existing database's
// schema_meta.version does not match CurrentSchemaVersion and no migration
// routine is registered for the (existing, required) pair.
type SchemaVersionMismatch struct {
	Existing int
	Required int
}

func (e *SchemaVersionMismatch) Error() string {
	return fmt.Sprintf("schema version mismatch: have %d, need %d", e.Existing, e.Required)
}

// NewStore opens a SQLite database at dbPath with the given Config applied
// as connection pragmas.
func NewStore(dbPath string, cfg Config) (*Store, error) {
	journalMode := "DELETE"
	if cfg.UseWAL {
		journalMode = "WAL"
	}
	dsn := fmt.Sprintf(
		"%s?_journal_mode=%s&_foreign_keys=ON&_busy_timeout=%d&_cache_size=%d&_synchronous=%d",
		dbPath, journalMode, cfg.BusyTimeoutMs, cfg.CacheSize, cfg.Synchronous,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// Close closes the underlying database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_meta (
  version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS file_index_mapping (
  file_index      INTEGER PRIMARY KEY,
  file_path       TEXT NOT NULL,
  normalized_path TEXT NOT NULL,
  pbo_id          TEXT,
  UNIQUE(normalized_path, pbo_id)
);

CREATE TABLE IF NOT EXISTS classes (
  id                     TEXT PRIMARY KEY,
  parent_id              TEXT,
  container_class        TEXT,
  source_file_index      INTEGER REFERENCES file_index_mapping(file_index) ON DELETE CASCADE,
  is_forward_declaration BOOLEAN NOT NULL DEFAULT FALSE,
  properties_blob        TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS missions (
  id          TEXT PRIMARY KEY,
  name        TEXT NOT NULL,
  source_path TEXT NOT NULL,
  scanned_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS mission_components (
  mission_id    TEXT NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
  component_id  TEXT NOT NULL,
  kind          TEXT NOT NULL,
  relative_path TEXT NOT NULL,
  PRIMARY KEY (mission_id, component_id)
);

CREATE TABLE IF NOT EXISTS mission_dependencies (
  id                   INTEGER PRIMARY KEY,
  mission_id           TEXT NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
  class_name           TEXT NOT NULL,
  reference_kind       TEXT NOT NULL,
  source_file          TEXT NOT NULL,
  line_number          INTEGER
);

CREATE INDEX IF NOT EXISTS idx_classes_parent ON classes(parent_id);
CREATE INDEX IF NOT EXISTS idx_classes_container ON classes(container_class);
CREATE INDEX IF NOT EXISTS idx_classes_source_file ON classes(source_file_index);
CREATE INDEX IF NOT EXISTS idx_classes_id_nocase ON classes(id COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_file_index_pbo ON file_index_mapping(pbo_id);
CREATE INDEX IF NOT EXISTS idx_mission_components_mission ON mission_components(mission_id);
CREATE INDEX IF NOT EXISTS idx_mission_deps_mission ON mission_dependencies(mission_id);
CREATE INDEX IF NOT EXISTS idx_mission_deps_class_nocase ON mission_dependencies(class_name COLLATE NOCASE);
`

// Migrate creates all tables on first open, or checks schema_meta.version
// against CurrentSchemaVersion on subsequent opens (spec.md §4.7). Exact
// match is required by default; a from/to-specific migration routine would
// be registered in the migrations map below, currently empty because this
// is the only schema version that has ever shipped.
var migrations = map[[2]int]func(*sql.Tx) error{}

func (s *Store) Migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: create schema: %w", err)
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM schema_meta").Scan(&count); err != nil {
		return fmt.Errorf("migrate: count schema_meta: %w", err)
	}

	if count == 0 {
		if _, err := tx.Exec("INSERT INTO schema_meta(version) VALUES (?)", CurrentSchemaVersion); err != nil {
			return fmt.Errorf("migrate: seed schema_meta: %w", err)
		}
		return tx.Commit()
	}

	var existing int
	if err := tx.QueryRow("SELECT version FROM schema_meta LIMIT 1").Scan(&existing); err != nil {
		return fmt.Errorf("migrate: read schema_meta: %w", err)
	}
	if existing == CurrentSchemaVersion {
		return tx.Commit()
	}

	migrate, ok := migrations[[2]int{existing, CurrentSchemaVersion}]
	if !ok {
		return &SchemaVersionMismatch{Existing: existing, Required: CurrentSchemaVersion}
	}
	if err := migrate(tx); err != nil {
		return fmt.Errorf("migrate: run %d->%d: %w", existing, CurrentSchemaVersion, err)
	}
	if _, err := tx.Exec("UPDATE schema_meta SET version = ?", CurrentSchemaVersion); err != nil {
		return fmt.Errorf("migrate: update schema_meta: %w", err)
	}
	return tx.Commit()
}

// WithForeignKeysDisabled runs fn within a transaction that has foreign-key
// enforcement turned off for the duration, per spec.md §4.7's bulk-seed-load
// allowance ("Foreign-key enforcement may be temporarily disabled within a
// transaction for bulk seed loads, then re-enabled before commit"). PRAGMA
// statements inside a transaction apply only to that connection, so this
// must run on a dedicated connection pinned for the whole call.
func (s *Store) WithForeignKeysDisabled(fn func(*sql.Tx) error) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("with foreign keys disabled: acquire conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("with foreign keys disabled: disable: %w", err)
	}
	defer conn.ExecContext(ctx, "PRAGMA foreign_keys = ON")

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("with foreign keys disabled: begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
