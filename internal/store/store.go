// Package store owns the on-disk code index database: the symbol table,
// its full-text search shadow, file tracking, and metadata. All mutation
// is transactional; the FTS shadow is synchronized by triggers inside the
// same transaction, so readers never observe one without the other.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// requiredTables must all be present for a schema to be considered valid.
var requiredTables = []string{"code_index", "code_index_fts", "indexed_files", "code_index_meta"}

// Store is the sole owner of the index database file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the index database at path, applies
// the connection pragmas, initializes the schema when absent, and
// validates it when present. Returns a SchemaError for an existing file
// with an incompatible schema and a StorageError for I/O failures.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &StorageError{Path: path, Op: "create dir for", Err: err}
		}
	}

	existed := fileExists(path)

	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	// One writer connection; WAL lets concurrent reader processes proceed.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}

	s := &Store{db: db, path: path}

	if existed {
		if err := s.validate(); err != nil {
			db.Close()
			return nil, err
		}
		// Existing file with no schema at all: treat as fresh.
		if ok, _ := s.hasAnyTable(); !ok {
			if err := s.createSchema(); err != nil {
				db.Close()
				return nil, err
			}
		}
		return s, nil
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// dsn builds the modernc.org/sqlite DSN with the index's tuning pragmas:
// WAL journaling, relaxed synchronous commits (the index is rebuildable),
// in-memory temp storage, and a bounded page cache.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)&_pragma=cache_size(-20000)", path)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return &StorageError{Path: s.path, Op: "initialize", Err: err}
	}
	if err := s.SetMeta("schema_version", SchemaVersion); err != nil {
		return err
	}
	return nil
}

// validate checks an existing database against the expected schema.
// A partially-present or corrupt schema yields a SchemaError; a database
// with no recognized tables is left for createSchema to populate.
func (s *Store) validate() error {
	present, err := s.presentTables()
	if err != nil {
		return &SchemaError{Path: s.path, Reason: fmt.Sprintf("unreadable catalog: %v", err)}
	}
	if len(present) == 0 {
		return nil
	}
	for _, table := range requiredTables {
		if !present[table] {
			return &SchemaError{Path: s.path, Reason: fmt.Sprintf("missing table %s", table)}
		}
	}

	var ftsSQL sql.NullString
	err = s.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'code_index_fts'`).Scan(&ftsSQL)
	if err != nil || !ftsSQL.Valid || !strings.Contains(strings.ToLower(ftsSQL.String), "fts5") {
		return &SchemaError{Path: s.path, Reason: "search shadow is not an fts5 table"}
	}

	version, err := s.GetMeta("schema_version")
	if err != nil {
		return &SchemaError{Path: s.path, Reason: fmt.Sprintf("unreadable schema_version: %v", err)}
	}
	if version != SchemaVersion {
		return &SchemaError{Path: s.path, Reason: fmt.Sprintf("schema_version %q, want %q", version, SchemaVersion)}
	}
	return nil
}

// ValidateSchema reports whether the open database has the full expected
// schema. Unlike Open's validation it returns false rather than an error.
func (s *Store) ValidateSchema() bool {
	present, err := s.presentTables()
	if err != nil {
		return false
	}
	for _, table := range requiredTables {
		if !present[table] {
			return false
		}
	}
	var ftsSQL sql.NullString
	err = s.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'code_index_fts'`).Scan(&ftsSQL)
	return err == nil && ftsSQL.Valid && strings.Contains(strings.ToLower(ftsSQL.String), "fts5")
}

// presentTables lists every user table, so a database belonging to some
// other application is distinguishable from an empty one.
func (s *Store) presentTables() (map[string]bool, error) {
	rows, err := s.db.Query(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	return present, rows.Err()
}

func (s *Store) hasAnyTable() (bool, error) {
	present, err := s.presentTables()
	return len(present) > 0, err
}

// Clear removes all symbols, their search shadow rows, and file tracking,
// keeping the schema in place.
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "clear", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM code_index`); err != nil {
		return &StorageError{Path: s.path, Op: "clear", Err: err}
	}
	if _, err := tx.Exec(`DELETE FROM indexed_files`); err != nil {
		return &StorageError{Path: s.path, Op: "clear", Err: err}
	}
	return tx.Commit()
}

// Drop removes the schema entirely and recreates it. Used by rebuilds to
// recover from corruption or schema incompatibility.
func (s *Store) Drop() error {
	if _, err := s.db.Exec(dropDDL); err != nil {
		return &StorageError{Path: s.path, Op: "drop schema", Err: err}
	}
	return s.createSchema()
}

// SetMeta writes one metadata key, overwriting any previous value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO code_index_meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return &StorageError{Path: s.path, Op: "write meta in", Err: err}
	}
	return nil
}

// GetMeta reads one metadata key; missing keys return "" without error.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM code_index_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Exists reports whether an index database file is present at path.
func Exists(path string) bool {
	return fileExists(path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
