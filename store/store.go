// Package store persists validated definitions in a content-addressed
// SQLite cache. It is purely a cache: a hit re-validates the stored
// source on load, so the capture invariant can never be bypassed by a
// stale or tampered row.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/blok/compiler"
	"github.com/chazu/blok/runtime"
)

var log = commonlog.GetLogger("blok.store")

// ErrNotFound indicates the requested definition doesn't exist.
var ErrNotFound = errors.New("definition not found")

// Store is a SQLite-backed definition cache keyed by content hash.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS definitions (
		hash     BLOB PRIMARY KEY,
		source   TEXT NOT NULL,
		captures JSON NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put persists a definition's source and declared captures under its
// content hash. Re-putting an identical definition is a no-op.
func (s *Store) Put(d *runtime.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	captures, err := json.Marshal(d.Declared())
	if err != nil {
		return fmt.Errorf("encoding captures: %w", err)
	}

	hash := d.Hash()
	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO definitions (hash, source, captures) VALUES (?, ?, json(?))",
		hash[:], d.Source(), string(captures),
	); err != nil {
		return fmt.Errorf("saving definition: %w", err)
	}

	log.Debugf("stored definition %x", hash[:8])
	return nil
}

// Get loads the definition with the given content hash. The stored
// source is re-compiled and re-validated, yielding a fresh Definition
// whose capture invariant has been checked on this load.
func (s *Store) Get(hash [32]byte) (*runtime.Definition, error) {
	var source, captures string
	err := s.db.QueryRow(
		"SELECT source, captures FROM definitions WHERE hash = ?", hash[:],
	).Scan(&source, &captures)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying definition: %w", err)
	}

	var declared []string
	if err := json.Unmarshal([]byte(captures), &declared); err != nil {
		return nil, fmt.Errorf("decoding captures: %w", err)
	}

	res, err := compiler.CompileBody(source, declared)
	if err != nil {
		return nil, fmt.Errorf("stored definition %x no longer validates: %w", hash[:8], err)
	}

	d := runtime.NewDefinition(res)
	if d.Hash() != hash {
		return nil, fmt.Errorf("stored definition %x fails hash verification", hash[:8])
	}
	return d, nil
}

// Has reports whether a definition with the given hash is stored.
func (s *Store) Has(hash [32]byte) bool {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM definitions WHERE hash = ?", hash[:],
	).Scan(&one)
	return err == nil
}

// Len returns the number of stored definitions.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM definitions").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting definitions: %w", err)
	}
	return n, nil
}
