package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// keyPrefix namespaces all listing keys in Redis.
// Example: "adlist:act_123:adsets:camp_9"
const keyPrefix = "adlist"

// CachedClient is a read-through cache over the listing calls. Rules that
// share a scope hit the platform once per TTL instead of once per rule.
// Mutations pass straight through. Cache failures fail open to the wrapped
// client; a stale or missing cache must never block an evaluation pass.
type CachedClient struct {
	next Client
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedClient(next Client, rdb *redis.Client, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedClient) ListCampaigns(ctx context.Context, auth AccountAuth) ([]Entity, error) {
	key := fmt.Sprintf("%s:%s:campaigns", keyPrefix, auth.AccountID)
	return c.listThrough(ctx, key, func() ([]Entity, error) {
		return c.next.ListCampaigns(ctx, auth)
	})
}

func (c *CachedClient) ListAdsets(ctx context.Context, auth AccountAuth, campaignID string) ([]Entity, error) {
	key := fmt.Sprintf("%s:%s:adsets", keyPrefix, auth.AccountID)
	if campaignID != "" {
		key += ":" + campaignID
	}
	return c.listThrough(ctx, key, func() ([]Entity, error) {
		return c.next.ListAdsets(ctx, auth, campaignID)
	})
}

func (c *CachedClient) SetDailyBudget(ctx context.Context, auth AccountAuth, adsetID string, minorUnits int64) error {
	return c.next.SetDailyBudget(ctx, auth, adsetID, minorUnits)
}

func (c *CachedClient) Pause(ctx context.Context, auth AccountAuth, adsetID string) error {
	return c.next.Pause(ctx, auth, adsetID)
}

func (c *CachedClient) listThrough(ctx context.Context, key string, load func() ([]Entity, error)) ([]Entity, error) {
	if val, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var out []Entity
		if err := json.Unmarshal([]byte(val), &out); err == nil {
			return out, nil
		}
		// corrupt entry; fall through to reload
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("listing cache read failed")
	}

	out, err := load()
	if err != nil {
		return nil, err
	}

	if bytes, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, bytes, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("listing cache write failed")
		}
	}
	return out, nil
}

// NewRedis initializes the Redis client used by the listing cache.
func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(initCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
