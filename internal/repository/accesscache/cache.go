// Package accesscache is the TTL-bounded cache for resolved authorized sets.
// Entries live in the shared key-value store so every replica sees an
// invalidation at once. Any read failure is a miss — the cache can only
// delay, never grant.
package accesscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/domain"
)

const cacheKeyPrefix = domain.KeyPrefix + "access_cache:"

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Cache caches identity→AuthorizedSet resolutions with a bounded TTL.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates an access-resolution cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// entry is the stored JSON shape.
type entry struct {
	All        bool     `json:"all"`
	Partitions []string `json:"partitions,omitempty"`
}

// Get returns the cached authorized set for an identity, if present.
func (c *Cache) Get(ctx context.Context, identity string) (domain.AuthorizedSet, bool) {
	data, err := c.store.Get(ctx, cacheKey(identity))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read access cache", zap.String("identity", identity), zap.Error(err))
		}
		c.incCache("miss")
		return domain.AuthorizedSet{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse access cache entry", zap.String("identity", identity), zap.Error(err))
		c.incCache("miss")
		return domain.AuthorizedSet{}, false
	}

	c.incCache("hit")
	if e.All {
		return domain.AllPartitions(), true
	}
	return domain.PartitionSubset(e.Partitions...), true
}

// Put stores a resolution with the configured TTL. Best effort: a write
// failure only costs a future cache miss.
func (c *Cache) Put(ctx context.Context, identity string, set domain.AuthorizedSet) {
	data, err := json.Marshal(entry{All: set.All(), Partitions: set.Partitions()})
	if err != nil {
		c.logger.Warn("Failed to encode access cache entry", zap.String("identity", identity), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, cacheKey(identity), data, c.ttl); err != nil {
		c.logger.Warn("Failed to write access cache", zap.String("identity", identity), zap.Error(err))
	}
}

// Invalidate drops an identity's cached resolution. Called synchronously from
// every grant mutation; a failure here is surfaced because a stale entry
// could keep serving revoked access until the TTL expires.
func (c *Cache) Invalidate(ctx context.Context, identity string) error {
	if err := c.store.Del(ctx, cacheKey(identity)); err != nil {
		return fmt.Errorf("invalidate access cache for %s: %w", identity, err)
	}
	return nil
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(identity string) string {
	return cacheKeyPrefix + identity
}
