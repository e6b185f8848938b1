package crawl

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscout/internal/model"
)

// Cache stores successful crawl results keyed by URL. Implementations never
// store screenshots; cached entries answer text-only lookups.
type Cache interface {
	Get(ctx context.Context, url string) (*model.CrawlContent, bool)
	Set(ctx context.Context, content *model.CrawlContent) error
	Close() error
}

// NewCache builds a cache from a driver name. Supported drivers are
// "memory", "sqlite" (dsn is a file path) and "redis" (dsn is a redis URL).
// An empty driver disables caching.
func NewCache(driver, dsn string, ttl time.Duration) (Cache, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	switch driver {
	case "", "none":
		return nil, nil
	case "memory":
		return newMemoryCache(ttl), nil
	case "sqlite":
		return openSQLiteCache(dsn, ttl)
	case "redis":
		return openRedisCache(dsn, ttl)
	default:
		return nil, eris.Errorf("crawl: unknown cache driver %q", driver)
	}
}

// --- memory ---

type memoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	content model.CrawlContent
	expires time.Time
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *memoryCache) Get(_ context.Context, url string) (*model.CrawlContent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[url]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(m.entries, url)
		return nil, false
	}
	c := e.content
	return &c, true
}

func (m *memoryCache) Set(_ context.Context, content *model.CrawlContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[content.URL] = memoryEntry{content: *content, expires: time.Now().Add(m.ttl)}
	return nil
}

func (m *memoryCache) Close() error { return nil }

// --- sqlite ---

type sqliteCache struct {
	db  *sql.DB
	ttl time.Duration
}

func openSQLiteCache(path string, ttl time.Duration) (*sqliteCache, error) {
	if path == "" {
		path = "leadscout-cache.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: open cache db")
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "crawl: %s", p)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS crawl_cache (
		url        TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "crawl: create cache table")
	}

	return &sqliteCache{db: db, ttl: ttl}, nil
}

func (s *sqliteCache) Get(ctx context.Context, url string) (*model.CrawlContent, bool) {
	var payload string
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, fetched_at FROM crawl_cache WHERE url = ?", url,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		zap.L().Debug("crawl: cache read failed", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	if time.Since(time.Unix(fetchedAt, 0)) > s.ttl {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM crawl_cache WHERE url = ?", url)
		return nil, false
	}
	var content model.CrawlContent
	if err := json.Unmarshal([]byte(payload), &content); err != nil {
		return nil, false
	}
	return &content, true
}

func (s *sqliteCache) Set(ctx context.Context, content *model.CrawlContent) error {
	payload, err := json.Marshal(content)
	if err != nil {
		return eris.Wrap(err, "crawl: marshal cache entry")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crawl_cache (url, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at`,
		content.URL, string(payload), time.Now().Unix())
	return eris.Wrap(err, "crawl: write cache entry")
}

func (s *sqliteCache) Close() error { return s.db.Close() }

// --- redis ---

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func openRedisCache(dsn string, ttl time.Duration) (*redisCache, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse redis url")
	}
	return &redisCache{rdb: redis.NewClient(opts), ttl: ttl}, nil
}

func (r *redisCache) key(url string) string {
	return fmt.Sprintf("leadscout:crawl:%s", url)
}

func (r *redisCache) Get(ctx context.Context, url string) (*model.CrawlContent, bool) {
	raw, err := r.rdb.Get(ctx, r.key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		zap.L().Debug("crawl: redis read failed", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	var content model.CrawlContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, false
	}
	return &content, true
}

func (r *redisCache) Set(ctx context.Context, content *model.CrawlContent) error {
	payload, err := json.Marshal(content)
	if err != nil {
		return eris.Wrap(err, "crawl: marshal cache entry")
	}
	return eris.Wrap(r.rdb.Set(ctx, r.key(content.URL), payload, r.ttl).Err(),
		"crawl: write cache entry")
}

func (r *redisCache) Close() error { return r.rdb.Close() }
