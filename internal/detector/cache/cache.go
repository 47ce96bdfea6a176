// Package cache stores similarity check results in Redis. Identical checks
// running at the same time share one computation, and a circuit breaker
// stops the detector from waiting on an unhealthy Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/ranker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/shingle"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix = "check:"

	// storeTimeout bounds a single Redis round trip. A slow store counts as
	// a miss instead of holding up the check.
	storeTimeout = 250 * time.Millisecond
)

// Store is the subset of pkg/redis.Client the cache uses.
type Store interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type ResultCache struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *ResultCache {
	c := &ResultCache{
		store:   store,
		ttl:     ttl,
		timeout: storeTimeout,
		metrics: m,
		logger:  logger.WithComponent("result-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     15 * time.Second,
		OnStateChange: func(name string, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Key identifies a check of text at threshold against an index holding
// indexSize documents. Texts that normalize identically share a key.
func Key(text string, threshold float64, indexSize int) (string, bool) {
	normalized, err := shingle.Normalize(text)
	if err != nil {
		return "", false
	}
	raw := normalized + "\x00" + strconv.FormatFloat(threshold, 'g', -1, 64) + "\x00" + strconv.Itoa(indexSize)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16]), true
}

// Get looks key up. Store errors and an open breaker count as misses.
func (c *ResultCache) Get(ctx context.Context, key string) (ranker.Ordered, bool) {
	var docs ranker.Ordered
	found := false
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.timeout, "cache get", func(ctx context.Context) error {
			var err error
			found, err = c.store.GetJSON(ctx, key, &docs)
			return err
		})
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
	return docs, true
}

func (c *ResultCache) Set(ctx context.Context, key string, docs ranker.Ordered) {
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.timeout, "cache set", func(ctx context.Context) error {
			return c.store.SetJSON(ctx, key, docs, c.ttl)
		})
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key or runs compute once for
// all concurrent callers with the same key. The bool reports a cache hit.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func() (ranker.Ordered, error),
) (ranker.Ordered, bool, error) {
	if docs, ok := c.Get(ctx, key); ok {
		return docs, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		docs, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(ranker.Ordered), false, nil
}

// Invalidate drops every cached check result.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Total   int64  `json:"total"`
	HitRate string `json:"hit_rate"`
	Breaker string `json:"breaker"`
}

func (c *ResultCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Total:   total,
		HitRate: fmt.Sprintf("%.1f%%", rate),
		Breaker: c.breaker.GetState().String(),
	}
}

func (c *ResultCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
