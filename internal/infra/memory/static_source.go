package memory

import (
	"context"
	"fmt"

	"blitz-quiz-service/internal/domain"
)

// StaticSource is a question pool backed by a fixed slice (useful for
// config-defined pools, tests and demos).
type StaticSource struct {
	questions []domain.Question
}

// NewStaticSource validates every question up front; the pool is immutable
// afterwards.
func NewStaticSource(questions []domain.Question) (*StaticSource, error) {
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return &StaticSource{questions: questions}, nil
}

func (s *StaticSource) Questions(_ context.Context) ([]domain.Question, error) {
	if len(s.questions) == 0 {
		return nil, domain.ErrEmptyPool
	}
	return s.questions, nil
}
