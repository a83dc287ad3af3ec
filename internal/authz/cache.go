package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mealbridge/mealbridge/internal/catalog"
)

const (
	generationKey  = "authz:generation"
	permsKeyPrefix = "authz:perms"
)

// DecisionCache is a short-lived Redis cache of actor -> effective permission
// set. Keys embed a global generation counter: bumping the counter makes every
// existing entry unreachable, which stands in for a role -> users reverse
// index on role-wide invalidations. The TTL bounds staleness if an
// invalidation is ever lost.
type DecisionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDecisionCache instantiates the cache helper.
func NewDecisionCache(client *redis.Client, ttl time.Duration) *DecisionCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &DecisionCache{client: client, ttl: ttl}
}

// Generation returns the current cache generation, initialising when missing.
func (c *DecisionCache) Generation(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, generationKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return gen, nil
}

// Get returns the cached permission set for a user. The second return value
// is false on a miss (including stale-generation entries, which are simply
// unreachable under the current generation's key).
func (c *DecisionCache) Get(ctx context.Context, userID int64) ([]catalog.Permission, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var perms []catalog.Permission
	if err := json.Unmarshal(payload, &perms); err != nil {
		return nil, false, err
	}
	return perms, true, nil
}

// Put stores the permission set for a user under the current generation.
func (c *DecisionCache) Put(ctx context.Context, userID int64, perms []catalog.Permission) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate drops the cached permission set for a single user.
func (c *DecisionCache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, key).Err()
}

// BumpGeneration invalidates every cached entry by incrementing the global
// generation counter.
func (c *DecisionCache) BumpGeneration(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}

// Sweep deletes entries left behind by previous generations. Stale entries
// are unreachable either way; sweeping just reclaims Redis memory ahead of
// TTL expiry. Returns the number of keys removed.
func (c *DecisionCache) Sweep(ctx context.Context) (int, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		return 0, err
	}
	current := fmt.Sprintf("%s:%d:", permsKeyPrefix, gen)

	removed := 0
	iter := c.client.Scan(ctx, 0, permsKeyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if len(key) >= len(current) && key[:len(current)] == current {
			continue
		}
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, iter.Err()
}

func (c *DecisionCache) key(ctx context.Context, userID int64) (string, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", permsKeyPrefix, gen, strconv.FormatInt(userID, 10)), nil
}
