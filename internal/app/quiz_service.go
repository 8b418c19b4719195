package app

import (
	"context"
	"fmt"
	"time"

	"blitz-quiz-service/internal/domain"
	"blitz-quiz-service/internal/protocol"
)

// QuestionBank picks the next question for a session.
type QuestionBank interface {
	Pick(ctx context.Context) (domain.Question, error)
}

// CompletionLedger records finished sessions (in-memory, Redis, etc).
type CompletionLedger interface {
	Append(ctx context.Context, record domain.CompletionRecord) error
	Snapshot(ctx context.Context) ([]domain.CompletionRecord, error)
	Subscribe() (<-chan []domain.CompletionRecord, func())
}

// QuizService drives the per-connection session state machine. One service
// instance is shared by all connections; the mutable state lives in Session
// values that each connection owns exclusively.
type QuizService struct {
	bank   QuestionBank
	ledger CompletionLedger
	window time.Duration
	now    func() time.Time
}

func NewQuizService(bank QuestionBank, ledger CompletionLedger, window time.Duration) *QuizService {
	return &QuizService{bank: bank, ledger: ledger, window: window, now: time.Now}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(bank QuestionBank, ledger CompletionLedger, window time.Duration, now func() time.Time) *QuizService {
	return &QuizService{bank: bank, ledger: ledger, window: window, now: now}
}

// Window is the session time budget, set once at the first question.
func (s *QuizService) Window() time.Duration {
	return s.window
}

// Session is the server-side state for one participant's quiz attempt,
// owned exclusively by the goroutine handling that connection.
type Session struct {
	name      string
	status    domain.SessionStatus
	current   *domain.Question
	score     int
	answered  int
	startedAt time.Time
	deadline  time.Time
}

// NewSession creates a fresh session awaiting the participant's name.
func (s *QuizService) NewSession() *Session {
	return &Session{status: domain.StatusAwaitingName}
}

func (sess *Session) Name() string                 { return sess.name }
func (sess *Session) Status() domain.SessionStatus { return sess.status }
func (sess *Session) Score() int                   { return sess.score }
func (sess *Session) Answered() int                { return sess.answered }

// Deadline is zero until the first question has been issued; it is set once
// and never refreshed by later questions.
func (sess *Session) Deadline() time.Time { return sess.deadline }

// HandleMessage advances the session for one inbound frame and returns the
// frames to send back. A message that is invalid in the current state, or
// arrives after the session ended, is discarded without a transition and
// without replies.
func (s *QuizService) HandleMessage(ctx context.Context, sess *Session, msg protocol.Message) ([]protocol.Message, error) {
	switch sess.status {
	case domain.StatusAwaitingName:
		if msg.Type != protocol.TypeName {
			return nil, nil
		}
		return s.start(ctx, sess, msg.Name)
	case domain.StatusAwaitingAnswer:
		switch msg.Type {
		case protocol.TypeAnswer:
			return s.answer(ctx, sess, msg.Answer)
		case protocol.TypeTimeout, protocol.TypeQuizEnd:
			return s.finish(ctx, sess)
		default:
			return nil, nil
		}
	default:
		// Ended: late frames are stale, the connection is already closing.
		return nil, nil
	}
}

// Expire force-completes a session whose window lapsed without a terminating
// message from the client. No-op unless a question is outstanding.
func (s *QuizService) Expire(ctx context.Context, sess *Session) ([]protocol.Message, error) {
	if sess.status != domain.StatusAwaitingAnswer {
		return nil, nil
	}
	return s.finish(ctx, sess)
}

// Abandon ends a session without a completion record, for peers that
// disconnected mid-quiz. Abandoned sessions never reach the ledger.
func (s *QuizService) Abandon(sess *Session) {
	sess.status = domain.StatusEnded
	sess.current = nil
}

func (s *QuizService) start(ctx context.Context, sess *Session, name string) ([]protocol.Message, error) {
	question, err := s.bank.Pick(ctx)
	if err != nil {
		return nil, fmt.Errorf("pick first question: %w", err)
	}

	sess.name = name
	sess.current = &question
	sess.startedAt = s.now()
	sess.deadline = sess.startedAt.Add(s.window)
	sess.status = domain.StatusAwaitingAnswer

	totalTime := int(s.window / time.Second)
	return []protocol.Message{
		protocol.WelcomeMessage(fmt.Sprintf("Welcome %s! Get ready to start the quiz.", name)),
		protocol.QuestionMessage(clientPayload(question), &totalTime),
	}, nil
}

func (s *QuizService) answer(ctx context.Context, sess *Session, answer string) ([]protocol.Message, error) {
	question := *sess.current
	correct := answer == question.CorrectAnswer
	if correct {
		sess.score++
	}
	sess.answered++

	text := "Correct!"
	if !correct {
		text = fmt.Sprintf("Wrong! The correct answer was %s", question.CorrectAnswer)
	}
	result := protocol.ResultMessage(correct, text, sess.score)

	next, err := s.bank.Pick(ctx)
	if err != nil {
		return nil, fmt.Errorf("pick next question: %w", err)
	}
	sess.current = &next

	// The deadline is deliberately not touched: one window covers the whole
	// session, so only the first question carries total_time.
	return []protocol.Message{
		result,
		protocol.QuestionMessage(clientPayload(next), nil),
	}, nil
}

func (s *QuizService) finish(ctx context.Context, sess *Session) ([]protocol.Message, error) {
	record := domain.CompletionRecord{
		Name:        sess.name,
		Score:       sess.score,
		Answered:    sess.answered,
		CompletedAt: s.now(),
	}
	if err := s.ledger.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("append completion record: %w", err)
	}

	sess.status = domain.StatusEnded
	sess.current = nil

	return []protocol.Message{
		protocol.FinalScoreMessage(sess.score, fmt.Sprintf("Quiz ended! Final score: %d/%d", sess.score, sess.answered)),
	}, nil
}

// clientPayload strips a question down to what the client may see.
func clientPayload(q domain.Question) protocol.QuestionPayload {
	return protocol.QuestionPayload{Question: q.Text, Options: q.Options}
}
