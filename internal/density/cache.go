package density

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/redis"
)

const keyPrefix = "density:"

// KeyPattern matches every cached density vector.
const KeyPattern = keyPrefix + "*"

// Store is the key/value subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cache memoises density vectors in Redis, keyed by corpus fingerprint and
// beta. Any Redis failure degrades to a local computation.
type Cache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func NewCache(store Store, ttl time.Duration) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger.WithComponent("density-cache"),
	}
}

// Weights returns the density weights of c for beta, computing and storing
// them on a miss. It returns nil when beta <= 0.
func (dc *Cache) Weights(ctx context.Context, c *corpus.Corpus, beta float64) ([]float64, error) {
	if beta <= 0 {
		return nil, nil
	}
	key := dc.buildKey(c.Fingerprint(), beta)
	if w, ok := dc.get(ctx, key, c.Len()); ok {
		return w, nil
	}
	val, err, _ := dc.group.Do(key, func() (interface{}, error) {
		if w, ok := dc.get(ctx, key, c.Len()); ok {
			return w, nil
		}
		dc.misses.Add(1)
		w := Compute(c.X, beta)
		dc.set(ctx, key, w)
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]float64), nil
}

// Stats reports cache hits and misses. A miss is counted once per local
// computation, however many callers shared it.
func (dc *Cache) Stats() (hits, misses int64) {
	return dc.hits.Load(), dc.misses.Load()
}

func (dc *Cache) get(ctx context.Context, key string, rows int) ([]float64, bool) {
	data, err := dc.store.Get(ctx, key)
	if err != nil {
		if redis.IsNilError(err) {
			dc.logger.Debug("density cache miss", "key", key)
		} else {
			dc.logger.Warn("density cache unavailable", "key", key, "error", err)
		}
		return nil, false
	}
	var w []float64
	if err := json.Unmarshal([]byte(data), &w); err != nil || len(w) != rows {
		dc.logger.Error("density cache entry unusable", "key", key, "error", err, "entries", len(w), "rows", rows)
		return nil, false
	}
	dc.hits.Add(1)
	return w, true
}

func (dc *Cache) set(ctx context.Context, key string, w []float64) {
	data, err := json.Marshal(w)
	if err != nil {
		dc.logger.Error("density cache marshal failed", "key", key, "error", err)
		return
	}
	if err := dc.store.Set(ctx, key, data, dc.ttl); err != nil {
		dc.logger.Error("density cache set failed", "key", key, "error", err)
	}
}

func (dc *Cache) buildKey(fingerprint string, beta float64) string {
	return fmt.Sprintf("%s%s:beta=%s", keyPrefix, fingerprint, strconv.FormatFloat(beta, 'g', -1, 64))
}
