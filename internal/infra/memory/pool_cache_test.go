package memory

import (
	"context"
	"testing"
	"time"

	"blitz-quiz-service/internal/bank"
	"blitz-quiz-service/internal/domain"
)

func TestPoolCacheCaches(t *testing.T) {
	static, err := NewStaticSource(samplePool())
	if err != nil {
		t.Fatalf("static source: %v", err)
	}
	loader := &countingLoader{Source: static}
	cache := NewPoolCache(loader, time.Minute)

	if _, err := cache.Questions(context.Background()); err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	pool, err := cache.Questions(context.Background())
	if err != nil {
		t.Fatalf("load pool 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(pool) != len(samplePool()) {
		t.Fatalf("expected %d questions, got %d", len(samplePool()), len(pool))
	}
}

func TestPoolCacheExpires(t *testing.T) {
	static, err := NewStaticSource(samplePool())
	if err != nil {
		t.Fatalf("static source: %v", err)
	}
	loader := &countingLoader{Source: static}
	cache := NewPoolCache(loader, time.Minute)

	now := time.Now()
	cache.clock = func() time.Time { return now }

	if _, err := cache.Questions(context.Background()); err != nil {
		t.Fatalf("load pool: %v", err)
	}

	// Past the TTL plus the worst-case jitter, the loader must be hit again.
	now = now.Add(2 * time.Minute)
	if _, err := cache.Questions(context.Background()); err != nil {
		t.Fatalf("load pool after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestStaticSourceRejectsBadQuestions(t *testing.T) {
	_, err := NewStaticSource([]domain.Question{
		{Text: "only one option", Options: []string{"a"}, CorrectAnswer: "a"},
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}

	_, err = NewStaticSource([]domain.Question{
		{Text: "answer not an option", Options: []string{"a", "b"}, CorrectAnswer: "c"},
	})
	if err == nil {
		t.Fatalf("expected validation error")
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
