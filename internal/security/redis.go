package security

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs Store with a shared Redis instance, ported from
// original_source's SecurityStore Redis branch. Unlike MemoryStore, Incr
// refreshes the key's TTL on every call (a SET NX EX + INCR/EXPIRE pipeline
// asymmetry preserved from the original).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-constructed client. Connectivity is the
// caller's concern (ping during startup, wrapped in a circuit breaker like
// the EPR client).
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttlSeconds int) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, time.Duration(ttlSeconds)*time.Second).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisStore) Incr(ctx context.Context, key string, ttlSeconds int) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Duration(ttlSeconds)*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
