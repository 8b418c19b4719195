// Package tcp accepts quiz connections and runs one session per connection.
package tcp

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"time"

	"blitz-quiz-service/internal/app"
	"blitz-quiz-service/internal/domain"
	"blitz-quiz-service/internal/protocol"
)

// Server is the connection dispatcher: it accepts connections until stopped
// and hands each one to its own goroutine. Sessions never share state with
// each other; the bank and the ledger are the only shared collaborators.
type Server struct {
	service *app.QuizService
	// grace is added to the session deadline before the server force-ends it,
	// leaving room for the client's own timeout report to arrive first.
	grace time.Duration
	ln    net.Listener
}

func NewServer(service *app.QuizService, grace time.Duration) *Server {
	return &Server{service: service, grace: grace}
}

// Listen binds the TCP endpoint. Failing to bind is the only fatal startup
// error the quiz core has.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address (useful with ":0" in tests).
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is canceled or the listener is closed.
// In-flight sessions are left to finish or be abandoned on their own.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handle(ctx, conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}

// handle runs one session to completion. All writes happen from this
// goroutine; a second goroutine only reads and forwards decoded frames.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	addr := conn.RemoteAddr()
	log.Printf("new connection from %s", addr)
	defer log.Printf("connection closed with %s", addr)

	sess := s.service.NewSession()
	enc := protocol.NewEncoder(conn)

	done := make(chan struct{})
	defer close(done)

	in := make(chan protocol.Message)
	go func() {
		defer close(in)
		dec := protocol.NewDecoder(conn)
		for {
			msg, err := dec.Decode()
			if err != nil {
				if protocol.IsDecodeError(err) {
					// Permissive stream parsing: drop the frame, keep the
					// connection and the current state.
					log.Printf("discarding bad frame from %s: %v", addr, err)
					continue
				}
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					log.Printf("read from %s failed: %v", addr, err)
				}
				return
			}
			select {
			case in <- msg:
			case <-done:
				return
			}
		}
	}()

	var deadlineTimer *time.Timer
	var deadlineC <-chan time.Time
	defer func() {
		if deadlineTimer != nil {
			deadlineTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.service.Abandon(sess)
			return
		case <-deadlineC:
			replies, err := s.service.Expire(ctx, sess)
			if err != nil {
				log.Printf("expire session for %s failed: %v", addr, err)
				s.service.Abandon(sess)
				return
			}
			s.send(enc, addr, replies)
			return
		case msg, ok := <-in:
			if !ok {
				// Peer went away; an unfinished session is abandoned, not
				// completed.
				s.service.Abandon(sess)
				return
			}
			replies, err := s.service.HandleMessage(ctx, sess, msg)
			if err != nil {
				log.Printf("session for %s failed: %v", addr, err)
				s.service.Abandon(sess)
				return
			}
			if !s.send(enc, addr, replies) {
				s.service.Abandon(sess)
				return
			}
			if deadlineC == nil && sess.Status() == domain.StatusAwaitingAnswer {
				deadlineTimer = time.NewTimer(time.Until(sess.Deadline().Add(s.grace)))
				deadlineC = deadlineTimer.C
			}
			if sess.Status() == domain.StatusEnded {
				return
			}
		}
	}
}

func (s *Server) send(enc *protocol.Encoder, addr net.Addr, replies []protocol.Message) bool {
	for _, reply := range replies {
		if err := enc.Encode(reply); err != nil {
			log.Printf("write to %s failed: %v", addr, err)
			return false
		}
	}
	return true
}
