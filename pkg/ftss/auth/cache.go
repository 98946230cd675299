package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache caches resolved token identities in redis so that external
// token verification is not repeated on every request. All methods are
// safe to call on a nil cache.
type TokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenCache creates a token cache backed by the given redis client
func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{client: client, ttl: ttl}
}

// NewTokenCacheFromEnv creates a token cache from FTSS_REDIS_ADDR.
// Returns nil when redis is not configured.
func NewTokenCacheFromEnv() *TokenCache {
	addr := os.Getenv("FTSS_REDIS_ADDR")
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("FTSS_REDIS_PASSWORD"),
	})
	return NewTokenCache(client, 5*time.Minute)
}

// cacheKey hashes the raw token so bearer tokens never appear in redis
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "ftss:token:" + hex.EncodeToString(sum[:])
}

// GetUserID returns the cached user ID for a token, if present
func (tc *TokenCache) GetUserID(ctx context.Context, token string) (uint, bool) {
	if tc == nil || tc.client == nil {
		return 0, false
	}
	val, err := tc.client.Get(ctx, cacheKey(token)).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// SetUserID caches the user ID for a token
func (tc *TokenCache) SetUserID(ctx context.Context, token string, userID uint) {
	if tc == nil || tc.client == nil {
		return
	}
	tc.client.Set(ctx, cacheKey(token), strconv.FormatUint(uint64(userID), 10), tc.ttl)
}
