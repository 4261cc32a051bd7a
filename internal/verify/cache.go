package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"residency/internal/platform/redis"
	id "residency/pkg/domain"
)

// DefaultTTL bounds how stale a cached projection can be. Verification is a
// read-mostly public surface; a short TTL keeps review transitions visible
// without hitting the stores on every scan.
const DefaultTTL = time.Minute

// Cache is a Redis read-through for verification projections. A nil client
// disables caching; every method degrades to a miss. Cache errors are logged
// and treated as misses, never surfaced to the caller.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

func NewCache(client *redis.Client, logger *slog.Logger, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, logger: logger, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, appID id.ApplicationID) (Projection, bool) {
	if c == nil || c.client == nil {
		return Projection{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(appID)).Bytes()
	if err != nil {
		return Projection{}, false
	}
	var p Projection
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.WarnContext(ctx, "dropping undecodable cached projection", "key", cacheKey(appID))
		c.client.Del(ctx, cacheKey(appID))
		return Projection{}, false
	}
	return p, true
}

func (c *Cache) Set(ctx context.Context, appID id.ApplicationID, p Projection) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(appID), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to cache projection", "error", err)
	}
}

func cacheKey(appID id.ApplicationID) string {
	return "verify:" + appID.String()
}
