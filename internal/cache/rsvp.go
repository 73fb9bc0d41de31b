package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/eventide/rsvp/internal/model"
)

// Cache key prefixes and TTLs.
const (
	rsvpKeyPrefix     = "rsvp:"
	negCacheKeySuffix = ":neg"

	// DefaultLookupTTL is the TTL for cached RSVP records.
	DefaultLookupTTL = 10 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetRSVP retrieves an RSVP from cache by email.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetRSVP(ctx context.Context, email string) (*model.RSVP, error) {
	cmd := c.client.HGetAll(ctx, rsvpKey(email))
	result, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	var cached model.CachedRSVP
	if err := cmd.Scan(&cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached rsvp: %w", err)
	}

	// A hash written by another email with the same key prefix is treated as a miss.
	if cached.Email != email {
		return nil, ErrCacheMiss
	}

	return cached.ToRSVP(), nil
}

// SetRSVP stores an RSVP in cache and clears any negative entry for its email.
func (c *Cache) SetRSVP(ctx context.Context, rsvp *model.RSVP) error {
	key := rsvpKey(rsvp.Email)

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, rsvp.ToCachedRSVP())
	pipe.Expire(ctx, key, c.lookupTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache rsvp: %w", err)
	}

	return nil
}

// DeleteRSVP removes both the positive and negative entries for an email.
func (c *Cache) DeleteRSVP(ctx context.Context, email string) error {
	key := rsvpKey(email)

	if err := c.client.Del(ctx, key, key+negCacheKeySuffix).Err(); err != nil {
		return fmt.Errorf("failed to delete rsvp from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if an email is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, email string) (bool, error) {
	exists, err := c.client.Exists(ctx, rsvpKey(email)+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks an email as having no RSVP.
func (c *Cache) SetNegativeCache(ctx context.Context, email string) error {
	err := c.client.SetEx(ctx, rsvpKey(email)+negCacheKeySuffix, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}

// rsvpKey derives the cache key for an email without embedding the address.
func rsvpKey(email string) string {
	return rsvpKeyPrefix + hashEmail(email)
}

func hashEmail(email string) string {
	hash := sha256.Sum256([]byte(email))
	return hex.EncodeToString(hash[:16]) // 32 hex chars
}
