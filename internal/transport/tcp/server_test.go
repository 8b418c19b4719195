package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"blitz-quiz-service/internal/app"
	"blitz-quiz-service/internal/domain"
	"blitz-quiz-service/internal/infra/memory"
	"blitz-quiz-service/internal/protocol"
)

type fixedBank struct {
	question domain.Question
}

func (b fixedBank) Pick(_ context.Context) (domain.Question, error) {
	return b.question, nil
}

func startServer(t *testing.T, window, grace time.Duration) (string, *memory.Ledger, func()) {
	t.Helper()
	ledger := memory.NewLedger()
	service := app.NewQuizService(fixedBank{question: domain.Question{
		Text:          "What is the capital of France?",
		Options:       []string{"London", "Berlin", "Paris", "Madrid"},
		CorrectAnswer: "Paris",
	}}, ledger, window)

	server := NewServer(service, grace)
	if err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(ctx); err != nil {
			t.Errorf("serve: %v", err)
		}
	}()

	stop := func() {
		cancel()
		<-done
	}
	return server.Addr().String(), ledger, stop
}

func dial(t *testing.T, addr string) (net.Conn, *protocol.Encoder, *protocol.Decoder) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn, protocol.NewEncoder(conn), protocol.NewDecoder(conn)
}

func TestQuizScenarioOverWire(t *testing.T) {
	addr, ledger, stop := startServer(t, 5*time.Second, 2*time.Second)
	defer stop()

	conn, enc, dec := dial(t, addr)
	defer conn.Close()

	if err := enc.Encode(protocol.NameMessage("Ada")); err != nil {
		t.Fatalf("send name: %v", err)
	}

	welcome, err := dec.Decode()
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.Text != "Welcome Ada! Get ready to start the quiz." {
		t.Fatalf("unexpected welcome: %+v", welcome)
	}

	first, err := dec.Decode()
	if err != nil {
		t.Fatalf("read first question: %v", err)
	}
	if first.Type != protocol.TypeQuestion || first.TotalTime == nil || *first.TotalTime != 5 {
		t.Fatalf("first question must carry total_time=5: %+v", first)
	}

	if err := enc.Encode(protocol.AnswerMessage("Paris")); err != nil {
		t.Fatalf("send answer: %v", err)
	}
	result, err := dec.Decode()
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if result.Type != protocol.TypeResult || !*result.Correct || *result.Score != 1 || result.Text != "Correct!" {
		t.Fatalf("unexpected result: %+v", result)
	}
	next, err := dec.Decode()
	if err != nil {
		t.Fatalf("read next question: %v", err)
	}
	if next.Type != protocol.TypeQuestion || next.TotalTime != nil {
		t.Fatalf("next question must not carry total_time: %+v", next)
	}

	if err := enc.Encode(protocol.TimeoutMessage()); err != nil {
		t.Fatalf("send timeout: %v", err)
	}
	final, err := dec.Decode()
	if err != nil {
		t.Fatalf("read final score: %v", err)
	}
	if final.Type != protocol.TypeFinalScore || *final.Score != 1 || final.Text != "Quiz ended! Final score: 1/1" {
		t.Fatalf("unexpected final score: %+v", final)
	}

	// Server closes the connection after the final score.
	if _, err := dec.Decode(); err == nil {
		t.Fatalf("expected connection to close after final score")
	}

	snap, err := ledger.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 1 || snap[0].Name != "Ada" || snap[0].Score != 1 || snap[0].Answered != 1 {
		t.Fatalf("unexpected ledger contents: %+v", snap)
	}
}

func TestMalformedFramesDoNotKillTheSession(t *testing.T) {
	addr, _, stop := startServer(t, 5*time.Second, 2*time.Second)
	defer stop()

	conn, enc, dec := dial(t, addr)
	defer conn.Close()

	// Garbage, an unknown type, then a valid frame in one write.
	if _, err := conn.Write([]byte("{oops\n{\"type\":\"handshake\"}\n")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := enc.Encode(protocol.NameMessage("Ada")); err != nil {
		t.Fatalf("send name: %v", err)
	}

	welcome, err := dec.Decode()
	if err != nil {
		t.Fatalf("read welcome after garbage: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("unexpected reply: %+v", welcome)
	}
}

func TestServerEnforcesDeadline(t *testing.T) {
	addr, ledger, stop := startServer(t, 300*time.Millisecond, 100*time.Millisecond)
	defer stop()

	conn, enc, dec := dial(t, addr)
	defer conn.Close()

	if err := enc.Encode(protocol.NameMessage("Ada")); err != nil {
		t.Fatalf("send name: %v", err)
	}
	if _, err := dec.Decode(); err != nil { // welcome
		t.Fatalf("read welcome: %v", err)
	}
	if _, err := dec.Decode(); err != nil { // first question
		t.Fatalf("read question: %v", err)
	}

	// Send nothing: an uncooperative client. The server must force the end.
	final, err := dec.Decode()
	if err != nil {
		t.Fatalf("read forced final score: %v", err)
	}
	if final.Type != protocol.TypeFinalScore || *final.Score != 0 {
		t.Fatalf("expected forced final_score 0, got %+v", final)
	}

	snap, _ := ledger.Snapshot(context.Background())
	if len(snap) != 1 || snap[0].Answered != 0 {
		t.Fatalf("expected one record for the forced end, got %+v", snap)
	}
}

func TestAbruptDisconnectLeavesNoRecord(t *testing.T) {
	addr, ledger, stop := startServer(t, 5*time.Second, 2*time.Second)
	defer stop()

	conn, enc, dec := dial(t, addr)
	if err := enc.Encode(protocol.NameMessage("Ada")); err != nil {
		t.Fatalf("send name: %v", err)
	}
	if _, err := dec.Decode(); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	conn.Close()

	// Give the server a moment to notice the peer is gone.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap, _ := ledger.Snapshot(context.Background())
		if len(snap) != 0 {
			t.Fatalf("abandoned session must not be recorded: %+v", snap)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	addr, _, stop := startServer(t, 5*time.Second, 2*time.Second)
	stop()

	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Fatalf("expected dial to fail after shutdown")
	}
}

func TestSessionsRunIndependently(t *testing.T) {
	addr, ledger, stop := startServer(t, 5*time.Second, 2*time.Second)
	defer stop()

	connA, encA, decA := dial(t, addr)
	defer connA.Close()
	connB, encB, decB := dial(t, addr)
	defer connB.Close()

	for name, enc := range map[string]*protocol.Encoder{"Ada": encA, "Grace": encB} {
		if err := enc.Encode(protocol.NameMessage(name)); err != nil {
			t.Fatalf("send name %s: %v", name, err)
		}
	}
	for _, dec := range []*protocol.Decoder{decA, decB} {
		if _, err := dec.Decode(); err != nil { // welcome
			t.Fatalf("read welcome: %v", err)
		}
		if _, err := dec.Decode(); err != nil { // question
			t.Fatalf("read question: %v", err)
		}
	}

	// Ada answers and finishes; Grace's session is untouched.
	if err := encA.Encode(protocol.AnswerMessage("Paris")); err != nil {
		t.Fatalf("send answer: %v", err)
	}
	if _, err := decA.Decode(); err != nil { // result
		t.Fatalf("read result: %v", err)
	}
	if _, err := decA.Decode(); err != nil { // next question
		t.Fatalf("read question: %v", err)
	}
	if err := encA.Encode(protocol.QuizEndMessage()); err != nil {
		t.Fatalf("send quiz_end: %v", err)
	}
	if _, err := decA.Decode(); err != nil { // final score
		t.Fatalf("read final: %v", err)
	}

	snap, _ := ledger.Snapshot(context.Background())
	if len(snap) != 1 || snap[0].Name != "Ada" {
		t.Fatalf("expected only Ada recorded, got %+v", snap)
	}

	// Grace can still finish on her own.
	if err := encB.Encode(protocol.QuizEndMessage()); err != nil {
		t.Fatalf("send quiz_end: %v", err)
	}
	final, err := decB.Decode()
	if err != nil {
		t.Fatalf("read grace final: %v", err)
	}
	if final.Type != protocol.TypeFinalScore {
		t.Fatalf("unexpected reply: %+v", final)
	}
}
