package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisClient is the subset of *redis.Client used by CachedLookup.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedLookup is a read-through cache in front of another Lookup. Entries
// are not invalidated on catalog writes, so it serves product browsing only;
// carts and checkout resolve against the backing lookup.
// Only FindByID hits are cached; misses (ErrNotFound) are never cached so a
// product that appears later resolves immediately. Redis failures fall back
// to the backing lookup.
type CachedLookup struct {
	next   Lookup
	rdb    RedisClient
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedLookup(next Lookup, rdb RedisClient, ttl time.Duration, logger zerolog.Logger) *CachedLookup {
	return &CachedLookup{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(id string) string { return "catalog:product:" + id }

func (c *CachedLookup) FindByID(ctx context.Context, id string) (Product, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var p Product
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			return p, nil
		}
		c.logger.Warn().Str("product_id", id).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn().Err(err).Str("product_id", id).Msg("catalog cache get failed")
	}

	p, err := c.next.FindByID(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if b, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, cacheKey(id), b, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("product_id", id).Msg("catalog cache set failed")
		}
	}
	return p, nil
}

func (c *CachedLookup) ListDistinctCategories(ctx context.Context) ([]string, error) {
	return c.next.ListDistinctCategories(ctx)
}

func (c *CachedLookup) List(ctx context.Context, f Filter) ([]Product, error) {
	return c.next.List(ctx, f)
}
