// Package cache holds the storefront's in-memory copy of the published
// catalog. The cache loads lazily on first read, collapses concurrent loads
// into one fetch, and degrades through a fallback chain instead of erroring:
// snapshot source, then the persisted copy on disk, then the bundled copy,
// then an empty catalog.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/centremart/catalog-service/internal/cache/fallback"
	"github.com/centremart/catalog-service/internal/mapper"
	"github.com/centremart/catalog-service/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through catalog cache. All getters are synchronous: they
// block until the cache is loaded and never return an error.
type Cache struct {
	source      Source
	persistPath string

	group singleflight.Group

	mu      sync.RWMutex
	loaded  bool
	records []mapper.Record
	byID    map[string]int
}

// New creates a cache over a snapshot source. persistPath may be empty to
// disable the on-disk copy.
func New(source Source, persistPath string) *Cache {
	return &Cache{source: source, persistPath: persistPath}
}

// EnsureLoaded loads the cache if it is not loaded yet. Concurrent callers
// share a single load; the snapshot source is fetched at most once per load.
func (c *Cache) EnsureLoaded(ctx context.Context) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}

	c.group.Do("load", func() (any, error) {
		c.mu.RLock()
		loaded := c.loaded
		c.mu.RUnlock()
		if !loaded {
			c.install(c.load(ctx))
		}
		return nil, nil
	})
}

// Refresh drops the in-memory and persisted copies and reloads from the
// source. Used after a new snapshot is published.
func (c *Cache) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.loaded = false
	c.records = nil
	c.byID = nil
	c.mu.Unlock()

	if c.persistPath != "" {
		if err := os.Remove(c.persistPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove persisted catalog copy", slog.Any("err", err))
		}
	}

	metrics.CacheRefreshes.Inc()
	c.EnsureLoaded(ctx)
}

// GetAllCached returns every cached record.
func (c *Cache) GetAllCached(ctx context.Context) []mapper.Record {
	c.EnsureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]mapper.Record, len(c.records))
	copy(out, c.records)
	return out
}

// GetTotalCount returns the number of cached records.
func (c *Cache) GetTotalCount(ctx context.Context) int {
	c.EnsureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// GetChunk returns up to limit records starting at offset. Out-of-range
// offsets yield an empty slice.
func (c *Cache) GetChunk(ctx context.Context, offset, limit int) []mapper.Record {
	c.EnsureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset >= len(c.records) {
		return []mapper.Record{}
	}
	end := offset + limit
	if end > len(c.records) {
		end = len(c.records)
	}
	out := make([]mapper.Record, end-offset)
	copy(out, c.records[offset:end])
	return out
}

// GetByID returns the record with the given id, if cached.
func (c *Cache) GetByID(ctx context.Context, id string) (mapper.Record, bool) {
	c.EnsureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.byID[id]; ok {
		return c.records[i], true
	}
	return mapper.Record{}, false
}

// GetByCategory returns every cached record in the given category.
// Matching is case-insensitive.
func (c *Cache) GetByCategory(ctx context.Context, category string) []mapper.Record {
	c.EnsureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []mapper.Record{}
	for _, record := range c.records {
		if strings.EqualFold(record.Category, category) {
			out = append(out, record)
		}
	}
	return out
}

// load walks the fallback chain and returns the first copy it can get.
func (c *Cache) load(ctx context.Context) []mapper.Raw {
	products, err := c.source.Fetch(ctx)
	if err == nil {
		c.persist(products)
		return products
	}
	slog.Warn("snapshot source unavailable, falling back", slog.Any("err", err))
	metrics.CacheFallbacks.Inc()

	if products, err := c.readPersisted(); err == nil {
		slog.Info("serving catalog from persisted copy", slog.Int("total", len(products)))
		return products
	}

	if products, err := fallback.Products(); err == nil {
		slog.Info("serving catalog from bundled copy", slog.Int("total", len(products)))
		return products
	}

	slog.Error("no catalog copy available, serving empty catalog")
	return nil
}

func (c *Cache) install(products []mapper.Raw) {
	records := make([]mapper.Record, 0, len(products))
	byID := make(map[string]int, len(products))
	for _, raw := range products {
		record := mapper.Map(raw)
		if record.ID != "" {
			byID[record.ID] = len(records)
		}
		records = append(records, record)
	}

	c.mu.Lock()
	c.records = records
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()
}

func (c *Cache) persist(products []mapper.Raw) {
	if c.persistPath == "" {
		return
	}
	payload, err := json.Marshal(products)
	if err != nil {
		slog.Warn("failed to marshal catalog copy", slog.Any("err", err))
		return
	}
	if err := os.WriteFile(c.persistPath, payload, 0o600); err != nil {
		slog.Warn("failed to persist catalog copy", slog.Any("err", err))
	}
}

func (c *Cache) readPersisted() ([]mapper.Raw, error) {
	if c.persistPath == "" {
		return nil, os.ErrNotExist
	}
	payload, err := os.ReadFile(c.persistPath)
	if err != nil {
		return nil, err
	}
	var products []mapper.Raw
	if err := json.Unmarshal(payload, &products); err != nil {
		return nil, err
	}
	return products, nil
}
