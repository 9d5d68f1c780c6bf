package catalog

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sqlagent/sqlagent/internal/observability"
)

const (
	minCacheBytes      = 512 * 1024
	tablesCacheKey     = "tables"
	constraintsKey     = "constraints"
	tableSchemaKeyPref = "schema:"
)

// Cache memoizes catalog reads across requests. Entries are msgpack encoded
// and expire after the configured TTL.
type Cache struct {
	store *freecache.Cache
	ttl   time.Duration
}

func NewCache(sizeBytes int, ttl time.Duration) *Cache {
	return newCache(sizeBytes, ttl, nil)
}

func newCache(sizeBytes int, ttl time.Duration, timer freecache.Timer) *Cache {
	if sizeBytes < minCacheBytes {
		sizeBytes = minCacheBytes
	}
	var store *freecache.Cache
	if timer != nil {
		store = freecache.NewCacheCustomTimer(sizeBytes, timer)
	} else {
		store = freecache.NewCache(sizeBytes)
	}
	return &Cache{store: store, ttl: ttl}
}

// Wrap returns a Source that consults the cache before src.
func (c *Cache) Wrap(src Source) Source {
	if c == nil {
		return src
	}
	return &cachedSource{cache: c, src: src}
}

// Invalidate drops every cached entry.
func (c *Cache) Invalidate() {
	c.store.Clear()
}

func (c *Cache) Stats() (hits, misses int64) {
	return c.store.HitCount(), c.store.MissCount()
}

func (c *Cache) expireSeconds() int {
	if c.ttl <= 0 {
		return 0
	}
	seconds := int(c.ttl / time.Second)
	if seconds == 0 {
		return 1
	}
	return seconds
}

func (c *Cache) load(key string, dst any) bool {
	data, err := c.store.Get([]byte(key))
	if err != nil {
		observability.ObserveSchemaCacheLookup(false)
		return false
	}
	if err := msgpack.Unmarshal(data, dst); err != nil {
		c.store.Del([]byte(key))
		observability.ObserveSchemaCacheLookup(false)
		return false
	}
	observability.ObserveSchemaCacheLookup(true)
	return true
}

func (c *Cache) save(key string, value any) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	// Entries larger than the segment limit are simply not cached.
	_ = c.store.Set([]byte(key), data, c.expireSeconds())
}

type cachedSource struct {
	cache *Cache
	src   Source
}

func (s *cachedSource) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	if s.cache.load(tablesCacheKey, &tables) {
		return tables, nil
	}
	tables, err := s.src.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.save(tablesCacheKey, tables)
	return tables, nil
}

func (s *cachedSource) TableSchema(ctx context.Context, table string) (TableSchema, error) {
	key := tableSchemaKeyPref + table
	var schema TableSchema
	if s.cache.load(key, &schema) {
		return schema, nil
	}
	schema, err := s.src.TableSchema(ctx, table)
	if err != nil {
		return TableSchema{}, err
	}
	s.cache.save(key, schema)
	return schema, nil
}

func (s *cachedSource) TableConstraints(ctx context.Context) (map[string]TableConstraints, error) {
	var constraints map[string]TableConstraints
	if s.cache.load(constraintsKey, &constraints) {
		return constraints, nil
	}
	constraints, err := s.src.TableConstraints(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.save(constraintsKey, constraints)
	return constraints, nil
}
