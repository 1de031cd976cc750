package offline

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// CacheName is the current cache version. Caches with any other name are
// dropped on activation.
const CacheName = "inventario-regidor-v1.0.0"

// Entry is one stored response.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Cache is a set of named response caches in one SQLite file. Each Cache
// value reads and writes the cache called Name.
type Cache struct {
	db   *sql.DB
	name string
	now  func() time.Time
}

// Open creates or opens the cache database at path and selects the cache
// called name (CacheName when empty).
func Open(path, name string) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is empty")
	}
	if strings.TrimSpace(name) == "" {
		name = CacheName
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect cache: %w", err)
	}

	// SQLite allows one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	return &Cache{db: db, name: name, now: time.Now}, nil
}

// Name returns the cache this value operates on.
func (c *Cache) Name() string {
	return c.name
}

// Close releases the database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Put stores e under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, e Entry) error {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	storedAt := e.StoredAt
	if storedAt.IsZero() {
		storedAt = c.now()
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO responses (cache_name, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cache_name, url) DO UPDATE SET
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at`,
		c.name, key, e.Status, string(header), e.Body, storedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Match returns the entry stored under key. ok is false when there is none.
func (c *Cache) Match(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e        Entry
		header   string
		storedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT status, header, body, stored_at FROM responses WHERE cache_name = ? AND url = ?`,
		c.name, key,
	).Scan(&e.Status, &header, &e.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("match %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(header), &e.Header); err != nil {
		return Entry{}, false, fmt.Errorf("decode header: %w", err)
	}
	e.StoredAt = time.UnixMilli(storedAt)
	return e, true, nil
}

// Names lists every cache present in the database.
func (c *Cache) Names(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT cache_name FROM responses ORDER BY cache_name`)
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteOthers drops every cache except this one and returns the names it
// removed.
func (c *Cache) DeleteOthers(ctx context.Context) ([]string, error) {
	names, err := c.Names(ctx)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, name := range names {
		if name == c.name {
			continue
		}
		if _, err := c.db.ExecContext(ctx, `DELETE FROM responses WHERE cache_name = ?`, name); err != nil {
			return removed, fmt.Errorf("delete cache %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}
