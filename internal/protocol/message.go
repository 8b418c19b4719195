package protocol

import "fmt"

// Type discriminates the wire messages of the quiz protocol.
type Type string

const (
	TypeName       Type = "name"
	TypeWelcome    Type = "welcome"
	TypeQuestion   Type = "question"
	TypeAnswer     Type = "answer"
	TypeResult     Type = "result"
	TypeTimeout    Type = "timeout"
	TypeQuizEnd    Type = "quiz_end"
	TypeFinalScore Type = "final_score"
)

// QuestionPayload is the client-visible slice of a question: prompt and
// options only. The correct answer stays in server-side session state.
type QuestionPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Message is one frame of the quiz protocol. Optional fields are pointers so
// that absence survives an encode/decode round trip; TotalTime in particular
// is present only on the first question of a session.
type Message struct {
	Type      Type             `json:"type"`
	Name      string           `json:"name,omitempty"`
	Correct   *bool            `json:"correct,omitempty"`
	Text      string           `json:"message,omitempty"`
	Score     *int             `json:"score,omitempty"`
	Data      *QuestionPayload `json:"data,omitempty"`
	TotalTime *int             `json:"total_time,omitempty"`
	Answer    string           `json:"answer,omitempty"`
}

// NameMessage introduces the participant.
func NameMessage(name string) Message {
	return Message{Type: TypeName, Name: name}
}

// WelcomeMessage greets a participant after their name arrives.
func WelcomeMessage(text string) Message {
	return Message{Type: TypeWelcome, Text: text}
}

// QuestionMessage carries the next question. totalTime is non-nil only on
// the first question of a session and holds the window in whole seconds.
func QuestionMessage(payload QuestionPayload, totalTime *int) Message {
	return Message{Type: TypeQuestion, Data: &payload, TotalTime: totalTime}
}

// AnswerMessage submits the participant's chosen option.
func AnswerMessage(answer string) Message {
	return Message{Type: TypeAnswer, Answer: answer}
}

// ResultMessage reports the outcome of one answer and the running score.
func ResultMessage(correct bool, text string, score int) Message {
	return Message{Type: TypeResult, Correct: &correct, Text: text, Score: &score}
}

// TimeoutMessage is the client's report that its answer window expired.
func TimeoutMessage() Message {
	return Message{Type: TypeTimeout}
}

// QuizEndMessage is the client's voluntary early end.
func QuizEndMessage() Message {
	return Message{Type: TypeQuizEnd}
}

// FinalScoreMessage closes the session with the final tally.
func FinalScoreMessage(score int, text string) Message {
	return Message{Type: TypeFinalScore, Score: &score, Text: text}
}

// validate enforces the required fields for each message kind. A message
// failing validation is reported as a malformed frame, not a transport error.
func (m Message) validate() error {
	switch m.Type {
	case TypeName:
		if m.Name == "" {
			return fmt.Errorf("%w: name message requires a name", ErrMalformedFrame)
		}
	case TypeAnswer:
		if m.Answer == "" {
			return fmt.Errorf("%w: answer message requires an answer", ErrMalformedFrame)
		}
	case TypeWelcome:
		if m.Text == "" {
			return fmt.Errorf("%w: welcome message requires a message", ErrMalformedFrame)
		}
	case TypeQuestion:
		if m.Data == nil || m.Data.Question == "" || len(m.Data.Options) < 2 {
			return fmt.Errorf("%w: question message requires a prompt and at least two options", ErrMalformedFrame)
		}
	case TypeResult:
		if m.Correct == nil || m.Score == nil || m.Text == "" {
			return fmt.Errorf("%w: result message requires correct, score and message", ErrMalformedFrame)
		}
	case TypeFinalScore:
		if m.Score == nil || m.Text == "" {
			return fmt.Errorf("%w: final_score message requires score and message", ErrMalformedFrame)
		}
	case TypeTimeout, TypeQuizEnd:
		// no fields
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}
