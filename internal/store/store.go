// Package store wraps the Redis key-value backend with the service's
// retry discipline. It exposes two read paths with different failure
// semantics: Get (mandatory, surfaces ErrUnavailable once the retry
// budget is spent) and CacheGet (advisory, any failure is a miss).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hornshoofs/scoring-api/internal/logging"
	"github.com/hornshoofs/scoring-api/internal/metrics"
)

// ErrUnavailable is returned by the mandatory read path after the retry
// budget is exhausted.
var ErrUnavailable = errors.New("store unavailable")

// ErrNotFound marks an absent key inside a Backend. Callers of Client see
// a (value, ok) pair instead.
var ErrNotFound = errors.New("key not found")

// Backend is the raw key-value surface the client retries over. The Redis
// implementation is the production one; tests substitute fakes.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Config for the production Redis backend.
type Config struct {
	Addr    string
	DB      int
	Retries int
	// Timeout is the fixed sleep between retry attempts.
	Timeout time.Duration
}

// Client is the retrying accessor shared across all requests. It holds no
// mutable state beyond its fixed configuration; the backend's own
// atomicity is relied upon.
type Client struct {
	backend Backend
	retries int
	timeout time.Duration
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New connects a client to Redis.
func New(cfg Config, log *logging.Logger, m *metrics.Metrics) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
	return NewWithBackend(&redisBackend{client: rdb}, cfg.Retries, cfg.Timeout, log, m)
}

// NewWithBackend builds a client over an arbitrary backend.
func NewWithBackend(b Backend, retries int, timeout time.Duration, log *logging.Logger, m *metrics.Metrics) *Client {
	if retries < 1 {
		retries = 1
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Client{backend: b, retries: retries, timeout: timeout, log: log, metrics: m}
}

// Get is the mandatory read path. Transient backend faults are retried
// with a fixed sleep between attempts; when the budget runs out the call
// fails with ErrUnavailable. The ok result distinguishes an absent key
// from an empty value.
func (c *Client) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			c.metrics.RecordStoreRetry()
		}
		value, err = c.backend.Get(ctx, key)
		if err == nil {
			return value, true, nil
		}
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		lastErr = err
		c.log.ForRequest(ctx).WithError(err).WithField("key", key).Warn("store get failed, retrying")
		time.Sleep(c.timeout)
	}
	return "", false, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Set writes a key in a single attempt. TTL is advisory; zero means no
// expiry.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.backend.Set(ctx, key, value, ttl)
}

// CacheGet is the advisory read path: any failure, including exhaustion of
// the retry budget, is reported as a miss.
func (c *Client) CacheGet(ctx context.Context, key string) (string, bool) {
	value, ok, err := c.Get(ctx, key)
	if err != nil {
		c.log.ForRequest(ctx).WithError(err).WithField("key", key).Warn("cache get failed, treating as miss")
		return "", false
	}
	return value, ok
}

// CacheSet is the advisory write path: failures are logged, never
// surfaced.
func (c *Client) CacheSet(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.backend.Set(ctx, key, value, ttl); err != nil {
		c.log.ForRequest(ctx).WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

// Ping reports backend liveness. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// redisBackend adapts go-redis to the Backend surface.
type redisBackend struct {
	client *redis.Client
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, error) {
	val, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (b *redisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *redisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

