package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "authz:"

// DecisionCache stores permission decisions keyed per user
type DecisionCache interface {
	Get(ctx context.Context, key string) (allowed bool, found bool, err error)
	Set(ctx context.Context, key string, allowed bool) error
	InvalidateUser(ctx context.Context, userID uint) error
	InvalidateAll(ctx context.Context) error
}

func decisionKey(userID uint, tenantID *uint, resource, action string) string {
	scope := "global"
	if tenantID != nil {
		scope = fmt.Sprintf("t%d", *tenantID)
	}
	return fmt.Sprintf("%s%d:%s:%s:%s", cacheKeyPrefix, userID, scope, resource, action)
}

// RedisDecisionCache keeps decisions in redis with a fixed TTL
type RedisDecisionCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisDecisionCache creates a cache over client
func NewRedisDecisionCache(client redis.UniversalClient, ttl time.Duration) *RedisDecisionCache {
	return &RedisDecisionCache{client: client, ttl: ttl}
}

func (c *RedisDecisionCache) Get(ctx context.Context, key string) (bool, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *RedisDecisionCache) Set(ctx context.Context, key string, allowed bool) error {
	val := "0"
	if allowed {
		val = "1"
	}
	return c.client.Set(ctx, key, val, c.ttl).Err()
}

func (c *RedisDecisionCache) InvalidateUser(ctx context.Context, userID uint) error {
	return c.deletePattern(ctx, fmt.Sprintf("%s%d:*", cacheKeyPrefix, userID))
}

func (c *RedisDecisionCache) InvalidateAll(ctx context.Context) error {
	return c.deletePattern(ctx, cacheKeyPrefix+"*")
}

func (c *RedisDecisionCache) deletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 200 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

// noopCache is used when redis is not configured
type noopCache struct{}

func (noopCache) Get(context.Context, string) (bool, bool, error) { return false, false, nil }
func (noopCache) Set(context.Context, string, bool) error         { return nil }
func (noopCache) InvalidateUser(context.Context, uint) error      { return nil }
func (noopCache) InvalidateAll(context.Context) error             { return nil }

// NoopCache returns a cache that never stores anything
func NoopCache() DecisionCache { return noopCache{} }
