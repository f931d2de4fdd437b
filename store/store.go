// Package store caches compiled chunks in a SQLite database, keyed by the
// SHA-256 of the source they were compiled from.
package store

import (
	"context"
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

	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
	"github.com/nimaipatel/rlox-bytecode/pkg/image"
)

var log = commonlog.GetLogger("rlox.store")

// ErrNotFound indicates no chunk is cached for the source.
var ErrNotFound = errors.New("chunk not found")

// Store is a chunk cache backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int
	Bytes   int64
}

// Open opens or creates the cache database at path. Parent directories are
// created as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		key TEXT PRIMARY KEY,
		image BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened chunk cache %s", path)
	return &Store{db: db, path: path}, nil
}

// Key returns the cache key for source.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached chunk for source, or ErrNotFound.
func (s *Store) Get(ctx context.Context, source string) (*bytecode.Chunk, error) {
	key := Key(source)

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT image FROM chunks WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying chunk: %w", err)
	}

	chunk, err := image.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("cached chunk %s: %w", key[:12], err)
	}
	log.Debugf("cache hit %s", key[:12])
	return chunk, nil
}

// Put stores chunk as the compiled form of source, replacing any entry.
func (s *Store) Put(ctx context.Context, source string, chunk *bytecode.Chunk) error {
	data, err := image.Encode(chunk)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO chunks (key, image, created_at) VALUES (?, ?, ?)",
		Key(source), data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// Delete removes the entry for source. Deleting a missing entry is not an
// error.
func (s *Store) Delete(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE key = ?", Key(source)); err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	return nil
}

// Stats reports the number of entries and total image bytes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(image)), 0) FROM chunks",
	).Scan(&st.Entries, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("querying stats: %w", err)
	}
	return st, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
