// Package cache keeps recent verification results in Redis so hot
// credentials (a popular employer re-checking the same code) skip the
// store. Lifecycle transitions invalidate eagerly, so a cached VALID can
// never outlive a revocation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"credence/internal/platform/redis"
	"credence/internal/verification/models"
	id "credence/pkg/domain"
)

const keyPrefix = "credence:verify:"

// Cache is nil-safe: a nil *Cache (Redis not configured) turns every
// operation into a no-op, so callers never branch on configuration.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New returns nil when client is nil.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached result for a lookup key, or (nil, false).
func (c *Cache) Get(ctx context.Context, lookup string) (*models.Result, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, keyPrefix+lookup).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "verification cache read failed", "error", err)
		}
		return nil, false
	}
	result, err := decodeResult(raw)
	if err != nil {
		return nil, false
	}
	return result, true
}

// Set stores a result under the lookup key. Only settled outcomes are worth
// caching; the caller decides which.
func (c *Cache) Set(ctx context.Context, lookup string, result *models.Result) {
	if c == nil {
		return
	}
	raw, err := encodeResult(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+lookup, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "verification cache write failed", "error", err)
	}
}

// envelope is the Redis payload. The credential ID rides outside the
// verifier-facing JSON (it is json:"-" on Result) so cache hits can still
// write an attributed attempt.
type envelope struct {
	Result       models.Result    `json:"result"`
	CredentialID *id.CredentialID `json:"credential_id,omitempty"`
}

func encodeResult(result *models.Result) ([]byte, error) {
	return json.Marshal(envelope{Result: *result, CredentialID: result.CredentialID})
}

func decodeResult(raw []byte) (*models.Result, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	env.Result.CredentialID = env.CredentialID
	return &env.Result, nil
}

// Invalidate drops the cached results for a credential's lookup keys.
// Called on every lifecycle transition and anchor writeback.
func (c *Cache) Invalidate(ctx context.Context, lookups ...string) {
	if c == nil || len(lookups) == 0 {
		return
	}
	keys := make([]string, len(lookups))
	for i, lookup := range lookups {
		keys[i] = keyPrefix + lookup
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "verification cache invalidation failed", "error", err)
	}
}
