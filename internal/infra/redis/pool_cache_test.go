package redis

import (
	"context"
	"testing"
	"time"

	"blitz-quiz-service/internal/bank"
	"blitz-quiz-service/internal/domain"
	"blitz-quiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPoolCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	static, err := memory.NewStaticSource(samplePool())
	if err != nil {
		t.Fatalf("static source: %v", err)
	}
	loader := &countingLoader{Source: static}
	cache := NewPoolCache(client, loader, time.Minute)

	pool, err := cache.Questions(context.Background())
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(pool) != len(samplePool()) {
		t.Fatalf("expected %d questions, got %d", len(samplePool()), len(pool))
	}
	if !mr.Exists("quiz:pool") {
		t.Fatalf("expected pool cached under quiz:pool")
	}

	// Second call should hit the Redis cache, loader not incremented.
	if _, err := cache.Questions(context.Background()); err != nil {
		t.Fatalf("load pool 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	bank.Source
	calls int
}

func (l *countingLoader) Questions(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.Source.Questions(ctx)
}

func samplePool() []domain.Question {
	return []domain.Question{
		{
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4", "5", "6"},
			CorrectAnswer: "4",
		},
		{
			Text:          "What is the capital of France?",
			Options:       []string{"London", "Berlin", "Paris", "Madrid"},
			CorrectAnswer: "Paris",
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
