// Package bank selects questions for quiz sessions.
package bank

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"blitz-quiz-service/internal/domain"
)

// Source supplies the question pool (static, cached, or DB-backed).
type Source interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// Bank picks questions uniformly at random, with replacement, from a Source.
// Safe for concurrent use by many sessions.
type Bank struct {
	source Source
	mu     sync.Mutex
	rnd    *rand.Rand
}

// Option configures a Bank.
type Option func(*Bank)

// WithRand injects the random source for deterministic picks in tests.
func WithRand(rnd *rand.Rand) Option {
	return func(b *Bank) {
		b.rnd = rnd
	}
}

func New(source Source, opts ...Option) *Bank {
	b := &Bank{
		source: source,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Pick returns one question chosen uniformly from the pool. Repeats across
// picks are expected.
func (b *Bank) Pick(ctx context.Context) (domain.Question, error) {
	pool, err := b.source.Questions(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	if len(pool) == 0 {
		return domain.Question{}, domain.ErrEmptyPool
	}
	b.mu.Lock()
	i := b.rnd.Intn(len(pool))
	b.mu.Unlock()
	return pool[i], nil
}
