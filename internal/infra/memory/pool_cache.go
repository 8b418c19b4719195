package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"blitz-quiz-service/internal/bank"
	"blitz-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PoolCache caches the question pool with a TTL so concurrent sessions do not
// hammer the backing loader. Loads are deduplicated with singleflight.
type PoolCache struct {
	loader bank.Source
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	pool      []domain.Question
	expiresAt time.Time
}

func NewPoolCache(loader bank.Source, ttl time.Duration) *PoolCache {
	return &PoolCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) Questions(ctx context.Context) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if c.pool != nil && c.expiresAt.After(now) {
		pool := c.pool
		c.mu.RUnlock()
		return pool, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("pool", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.pool != nil && c.expiresAt.After(now) {
			pool := c.pool
			c.mu.RUnlock()
			return pool, nil
		}
		c.mu.RUnlock()

		pool, err := c.loader.Questions(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.pool = pool
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
