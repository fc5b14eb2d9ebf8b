package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	// Cache key prefixes
	CacheKeyDashboard   = "netbill:dashboard:stats"
	CacheKeyIncome      = "netbill:income:totals"
	CacheKeyTokenPrefix = "netbill:token:revoked:"

	// Cache TTLs
	CacheTTLDashboard = 1 * time.Minute
	CacheTTLIncome    = 2 * time.Minute
)

// ErrCacheUnavailable is returned when no Redis connection is configured
var ErrCacheUnavailable = errors.New("cache unavailable")

// CacheGet retrieves a value from Redis cache and unmarshals it into dest
func CacheGet(key string, dest interface{}) error {
	if Redis == nil {
		return ErrCacheUnavailable
	}
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	if Redis == nil {
		return ErrCacheUnavailable
	}
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes keys from Redis cache
func CacheDelete(keys ...string) error {
	if Redis == nil || len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// InvalidateBillingCaches clears dashboard and income summaries after any
// ledger mutation.
func InvalidateBillingCaches() {
	CacheDelete(CacheKeyDashboard, CacheKeyIncome)
}

// BlacklistToken marks a JWT as revoked until its natural expiry
func BlacklistToken(token string, ttl time.Duration) error {
	if Redis == nil {
		return ErrCacheUnavailable
	}
	ctx := context.Background()
	return Redis.Set(ctx, CacheKeyTokenPrefix+token, "1", ttl).Err()
}

// IsTokenBlacklisted checks whether a JWT has been revoked by logout
func IsTokenBlacklisted(token string) bool {
	if Redis == nil {
		return false
	}
	ctx := context.Background()
	n, err := Redis.Exists(ctx, CacheKeyTokenPrefix+token).Result()
	return err == nil && n > 0
}
