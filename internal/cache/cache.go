// Package cache stores optimized programs in a sqlite database, keyed by the
// sha256 of the bytecode text they were built from.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/hikkiyomi/ewlang/internal/bytecode"
)

var log = commonlog.GetLogger("ewlang.cache")

// ErrMiss indicates no program is stored under the requested key
var ErrMiss = errors.New("not in cache")

// Store is a sqlite-backed program cache.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Key returns the cache key of a bytecode text.
func Key(text []byte) string {
	sum := sha256.Sum256(text)
	return hex.EncodeToString(sum[:])
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash       TEXT PRIMARY KEY,
		bundle     BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		hits       INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened program cache %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get loads the bundle stored under key and counts the hit. It returns
// ErrMiss when there is none.
func (s *Store) Get(key string) (*bytecode.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow("SELECT bundle FROM programs WHERE hash = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debugf("miss %s", short(key))
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	b, err := bytecode.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("cached program %s: %w", short(key), err)
	}

	if _, err := s.db.Exec("UPDATE programs SET hits = hits + 1 WHERE hash = ?", key); err != nil {
		return nil, fmt.Errorf("counting hit: %w", err)
	}
	log.Debugf("hit %s", short(key))
	return b, nil
}

// Put stores b under key, replacing any previous entry.
func (s *Store) Put(key string, b *bytecode.Bundle) error {
	data, err := b.Serialize()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO programs (hash, bundle, created_at, hits) VALUES (?, ?, ?, 0)",
		key, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	log.Debugf("stored %s (%d bytes)", short(key), len(data))
	return nil
}

// Hits returns how many times key was served.
func (s *Store) Hits(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow("SELECT hits FROM programs WHERE hash = ?", key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMiss
	}
	return n, err
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
