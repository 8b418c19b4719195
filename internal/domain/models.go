package domain

import "time"

// SessionStatus tracks where a quiz session is in its lifecycle.
type SessionStatus int

const (
	// StatusAwaitingName means the participant has connected but not introduced themselves.
	StatusAwaitingName SessionStatus = iota
	// StatusAwaitingAnswer means a question is outstanding.
	StatusAwaitingAnswer
	// StatusEnded is terminal; the session takes no further transitions.
	StatusEnded
)

func (s SessionStatus) String() string {
	switch s {
	case StatusAwaitingName:
		return "awaiting_name"
	case StatusAwaitingAnswer:
		return "awaiting_answer"
	case StatusEnded:
		return "ended"
	}
	return "unknown"
}

// Question is an immutable multiple-choice question. The correct answer is
// server-side state only and is never put on the wire.
type Question struct {
	Text          string   `json:"question" yaml:"text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correct_answer" yaml:"answer"`
}

// Validate checks the structural rules for a question: at least two options,
// and the correct answer must be one of them.
func (q Question) Validate() error {
	if q.Text == "" {
		return ErrInvalidQuestion
	}
	if len(q.Options) < 2 {
		return ErrInvalidQuestion
	}
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return nil
		}
	}
	return ErrInvalidQuestion
}

// CompletionRecord summarizes a finished session. Immutable once appended
// to the ledger.
type CompletionRecord struct {
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Answered    int       `json:"answered"`
	CompletedAt time.Time `json:"completedAt"`
}
