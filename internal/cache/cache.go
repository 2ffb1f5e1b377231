package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	SetRunStatus(ctx context.Context, rec models.RunRecord, ttl time.Duration) error
	GetRunStatus(ctx context.Context, runID uuid.UUID) (models.RunRecord, bool, error)
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) SetRunStatus(ctx context.Context, rec models.RunRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}
	return c.client.Set(ctx, RunStatusKey(rec.RunID), data, ttl).Err()
}

func (c *RedisCache) GetRunStatus(ctx context.Context, runID uuid.UUID) (models.RunRecord, bool, error) {
	val, err := c.client.Get(ctx, RunStatusKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.RunRecord{}, false, nil
	}
	if err != nil {
		return models.RunRecord{}, false, err
	}

	var rec models.RunRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return models.RunRecord{}, false, fmt.Errorf("decoding run record: %w", err)
	}
	return rec, true, nil
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

var _ Cache = (*RedisCache)(nil)
