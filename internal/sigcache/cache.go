// Package sigcache implements the persistent Gemini thought-signature
// cache: a process-wide tool_call_id -> signature
// store backed by a single sqlite file, with an in-memory map layered
// on top so hot lookups avoid a round trip to disk.
package sigcache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const defaultMaxAge = 30 * 24 * time.Hour

// Entry mirrors the persisted row shape.
type Entry struct {
	Signature string
	Timestamp int64 // epoch seconds
}

// Cache is the process-wide signature store. Readers and writers
// serialize on mu; the in-memory map is the fast path and the sqlite
// file is the durable backing store.
type Cache struct {
	mu  sync.Mutex
	db  *sql.DB
	mem map[string]Entry
}

// DefaultPath resolves the signature-cache file location:
// {CACHE_DIR or ~/.cache/gemini-proxy}/signatures.db.
func DefaultPath(cacheDir string) (string, error) {
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("sigcache: resolve home dir: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache", "gemini-proxy")
	}
	return filepath.Join(cacheDir, "signatures.db"), nil
}

// Open lazily initializes the on-disk layout at path and returns a
// ready Cache. Safe to call with a path whose parent directory does
// not yet exist.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sigcache: create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sigcache: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY churn

	const schema = `
CREATE TABLE IF NOT EXISTS signatures (
	tool_call_id TEXT PRIMARY KEY,
	signature    TEXT NOT NULL,
	timestamp    INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sigcache: init schema: %w", err)
	}

	return &Cache{db: db, mem: make(map[string]Entry)}, nil
}

// Get returns the signature for toolCallID, checking the in-memory
// map first and falling back to sqlite on a miss.
func (c *Cache) Get(toolCallID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.mem[toolCallID]; ok {
		return e.Signature, true
	}

	row := c.db.QueryRow(`SELECT signature, timestamp FROM signatures WHERE tool_call_id = ?`, toolCallID)
	var e Entry
	if err := row.Scan(&e.Signature, &e.Timestamp); err != nil {
		return "", false
	}
	c.mem[toolCallID] = e
	return e.Signature, true
}

// Set stores the signature for toolCallID with the given timestamp,
// in both the memory layer and the persistent store.
func (c *Cache) Set(toolCallID, signature string, timestamp int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(
		`INSERT INTO signatures (tool_call_id, signature, timestamp) VALUES (?, ?, ?)
		 ON CONFLICT(tool_call_id) DO UPDATE SET signature = excluded.signature, timestamp = excluded.timestamp`,
		toolCallID, signature, timestamp,
	); err != nil {
		return fmt.Errorf("sigcache: set %s: %w", toolCallID, err)
	}

	c.mem[toolCallID] = Entry{Signature: signature, Timestamp: timestamp}
	return nil
}

// GC deletes entries older than maxAge (defaulting to 30 days when
// zero)'s days_old * 86400 eviction rule. Returns the
// number of rows removed.
func (c *Cache) GC(maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	cutoff := time.Now().Add(-maxAge).Unix()

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec(`DELETE FROM signatures WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sigcache: gc: %w", err)
	}
	n, _ := res.RowsAffected()

	for k, e := range c.mem {
		if e.Timestamp < cutoff {
			delete(c.mem, k)
		}
	}

	return n, nil
}

// Close releases the underlying sqlite handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
