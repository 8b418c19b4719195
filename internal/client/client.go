// Package client implements the participant side of the quiz protocol,
// including the answer-window controller that owns the countdown.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"blitz-quiz-service/internal/protocol"
)

// ErrWindowExpired is returned by Answer once the window has lapsed; expired
// answers are suppressed locally and never reach the server.
var ErrWindowExpired = errors.New("answer window expired")

// EventKind discriminates the events surfaced to the presentation layer.
type EventKind int

const (
	EventWelcome EventKind = iota
	EventQuestion
	EventResult
	EventTick
	EventExpired
	EventFinal
)

// Event is what the presentation layer consumes. The client core never
// renders anything itself.
type Event struct {
	Kind      EventKind
	Text      string
	Question  *protocol.QuestionPayload
	Remaining int
	Score     int
	Answered  int
	Correct   bool
}

// Client holds the connection and the session-local quiz state.
type Client struct {
	addr string
	tick time.Duration

	conn   net.Conn
	enc    *protocol.Encoder
	sendMu sync.Mutex

	window *windowController

	events   chan Event
	score    int
	answered int
}

// Option configures a Client.
type Option func(*Client)

// WithTickInterval overrides the countdown tick; one tick spends one second
// of total_time. Tests use short intervals.
func WithTickInterval(d time.Duration) Option {
	return func(c *Client) {
		c.tick = d
	}
}

func New(addr string, opts ...Option) *Client {
	c := &Client{
		addr:   addr,
		tick:   time.Second,
		events: make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.window = newWindowController()
	return c
}

// Events delivers protocol events to the presentation layer. Closed when the
// session is over.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Connect dials the server.
func (c *Client) Connect(ctx context.Context) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	c.conn = conn
	c.enc = protocol.NewEncoder(conn)
	return nil
}

// SendName introduces the participant and starts the quiz.
func (c *Client) SendName(name string) error {
	return c.send(protocol.NameMessage(name))
}

// Answer submits a choice. Once the window has expired the submission is
// suppressed locally and ErrWindowExpired is returned.
func (c *Client) Answer(answer string) error {
	if c.window.Expired() {
		return ErrWindowExpired
	}
	return c.send(protocol.AnswerMessage(answer))
}

// End requests a voluntary early end of the quiz.
func (c *Client) End() error {
	return c.send(protocol.QuizEndMessage())
}

// Close tears the connection down and stops the window controller. The
// connection goes first so a running Run loop unwinds and releases the
// countdown before the join in Stop.
func (c *Client) Close() error {
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.window.Stop()
	return err
}

// Run consumes server frames until the session ends, feeding the events
// channel. Malformed frames are skipped, matching the server's permissive
// parsing.
func (c *Client) Run(ctx context.Context) error {
	// Deferred in this order so that on return the countdown's pending emits
	// are released, the controller goroutine is joined, and only then is the
	// events channel closed.
	runCtx, cancel := context.WithCancel(ctx)
	defer close(c.events)
	defer c.window.Stop()
	defer cancel()

	dec := protocol.NewDecoder(c.conn)
	for {
		msg, err := dec.Decode()
		if err != nil {
			if protocol.IsDecodeError(err) {
				log.Printf("skipping bad frame from server: %v", err)
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read server frame: %w", err)
		}
		if done := c.dispatch(runCtx, msg); done {
			return nil
		}
	}
}

func (c *Client) dispatch(ctx context.Context, msg protocol.Message) bool {
	switch msg.Type {
	case protocol.TypeWelcome:
		c.emit(ctx, Event{Kind: EventWelcome, Text: msg.Text})
	case protocol.TypeQuestion:
		// Only the first question carries total_time; it arms the one and
		// only countdown for the whole session.
		if msg.TotalTime != nil {
			c.window.Arm(*msg.TotalTime, c.tick, c.onTick(ctx), c.onExpire(ctx))
		}
		c.emit(ctx, Event{Kind: EventQuestion, Question: msg.Data})
	case protocol.TypeResult:
		c.score = *msg.Score
		c.answered++
		c.emit(ctx, Event{
			Kind:     EventResult,
			Text:     msg.Text,
			Correct:  *msg.Correct,
			Score:    c.score,
			Answered: c.answered,
		})
	case protocol.TypeFinalScore:
		c.emit(ctx, Event{Kind: EventFinal, Text: msg.Text, Score: *msg.Score, Answered: c.answered})
		return true
	}
	return false
}

func (c *Client) onTick(ctx context.Context) func(remaining int) {
	return func(remaining int) {
		c.emit(ctx, Event{Kind: EventTick, Remaining: remaining})
	}
}

func (c *Client) onExpire(ctx context.Context) func() {
	return func() {
		c.emit(ctx, Event{Kind: EventExpired, Text: "Time's up!"})
		if err := c.send(protocol.TimeoutMessage()); err != nil {
			log.Printf("send timeout failed: %v", err)
		}
	}
}

// send serializes writes; the window controller and the presentation layer
// may both emit frames.
func (c *Client) send(msg protocol.Message) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.enc.Encode(msg)
}

func (c *Client) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}
