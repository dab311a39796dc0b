package embedding

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS embedding_cache (
    text TEXT PRIMARY KEY,
    embedding TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_embedding_cache_created_at ON embedding_cache (created_at);
`

// Cache is the durable embedding store. Keys are the raw input texts;
// vectors are stored as JSON arrays. The cache lives in its own database
// file so it can be wiped independently of the statement data.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (and if needed creates) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenCache: opening database at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenCache: creating schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached vector for text, with ok reporting whether the
// cache held one.
func (c *Cache) Get(ctx context.Context, text string) (vec []float32, ok bool, err error) {
	var raw string
	err = c.db.QueryRowContext(ctx,
		`SELECT embedding FROM embedding_cache WHERE text = ?`, text,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Get: querying cache: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false, fmt.Errorf("Get: decoding cached vector: %w", err)
	}
	return vec, true, nil
}

// Put stores the vector for text, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, text string, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("Put: encoding vector: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embedding_cache (text, embedding) VALUES (?, ?)`,
		text, string(raw),
	)
	if err != nil {
		return fmt.Errorf("Put: storing vector: %w", err)
	}
	return nil
}

// Len counts cached entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Len: counting rows: %w", err)
	}
	return n, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}
