package mapper

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/resilience"
)

const keyPrefix = "pic:"

// KV is the subset of the Redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// ResultCache memoises map results per (grid, feature content, options).
// Cache failures never fail a lookup; they count against a circuit breaker
// and the result is computed instead.
type ResultCache struct {
	kv      KV
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewResultCache wraps kv. m may be nil.
func NewResultCache(kv KV, ttl time.Duration, m *metrics.Metrics) *ResultCache {
	c := &ResultCache{
		kv:      kv,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("result-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(name string, s resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(s))
			}
		},
	})
	return c
}

// Key derives the cache key. Feature content is hashed by bit pattern, so
// runs that differ only in float representation get different keys.
func Key(fingerprint string, run spectra.Run, opts Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|dup=%t|out=%t|", run.ID, opts.RemoveDuplicatesInScan, opts.RemoveOutliers)
	var buf [8]byte
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	for _, scan := range run.Scans {
		writeFloat(scan.RetentionTime)
		binary.LittleEndian.PutUint64(buf[:], uint64(len(scan.Mz)))
		h.Write(buf[:])
		for i, mz := range scan.Mz {
			writeFloat(mz)
			if i < len(scan.Intensity) {
				writeFloat(scan.Intensity[i])
			}
		}
	}
	return fmt.Sprintf("%s%s:%x", keyPrefix, fingerprint, h.Sum(nil)[:16])
}

func (c *ResultCache) Get(ctx context.Context, key string) (Result, bool) {
	var data []byte
	var miss bool
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.kv.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			miss = true
			return nil
		}
		return err
	})
	if err != nil || miss {
		if err != nil {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.countMiss()
		return Result{}, false
	}

	var result Result
	if err := gojson.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.countMiss()
		return Result{}, false
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key, "feature_id", result.FeatureID)
	return result, true
}

func (c *ResultCache) Set(ctx context.Context, key string, result Result) {
	data, err := gojson.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.kv.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key, or runs compute once per
// key across concurrent callers and caches its result. The bool reports a
// cache hit.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, compute func() (Result, error)) (Result, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return Result{}, false, err
	}
	return val.(Result), false, nil
}

// Invalidate drops every result computed against the grid with the given
// fingerprint.
func (c *ResultCache) Invalidate(ctx context.Context, fingerprint string) error {
	deleted, err := c.kv.DeletePrefix(ctx, keyPrefix+fingerprint+":")
	if err != nil {
		return fmt.Errorf("invalidating cache for grid %s: %w", fingerprint, err)
	}
	c.logger.Info("cache invalidated", "fingerprint", fingerprint, "keys_deleted", deleted)
	return nil
}

func (c *ResultCache) countMiss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
