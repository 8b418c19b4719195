package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"blitz-quiz-service/internal/bank"
	"blitz-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const poolKey = "quiz:pool"

// PoolCache caches the question pool in Redis and falls back to a loader on
// cache miss, so multiple server instances share one copy of the pool.
// Stored as: SET quiz:pool <json array of questions> with a TTL.
type PoolCache struct {
	client *redis.Client
	loader bank.Source
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPoolCache(client *redis.Client, loader bank.Source, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) Questions(ctx context.Context) ([]domain.Question, error) {
	raw, err := c.client.Get(ctx, poolKey).Bytes()
	if err == nil && len(raw) > 0 {
		return decodePool(raw)
	}

	result, err, _ := c.sf.Do(poolKey, func() (interface{}, error) {
		// Re-check the cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, poolKey).Bytes()
		if err == nil && len(raw) > 0 {
			return decodePool(raw)
		}

		pool, err := c.loader.Questions(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(pool)
		if err != nil {
			return nil, fmt.Errorf("marshal pool: %w", err)
		}
		_ = c.client.Set(ctx, poolKey, data, c.ttlWithJitter()).Err()

		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func decodePool(raw []byte) ([]domain.Question, error) {
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, fmt.Errorf("unmarshal pool: %w", err)
	}
	return pool, nil
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
