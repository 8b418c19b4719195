package client

import (
	"sync"
	"time"
)

// windowController owns the client-side countdown for the single session
// window. It arms at most once, fires the expiry callback exactly once, and
// after expiry the client suppresses further answers locally.
type windowController struct {
	mu      sync.Mutex
	armed   bool
	expired bool
	stop    chan struct{}
	done    chan struct{}
}

func newWindowController() *windowController {
	return &windowController{stop: make(chan struct{}), done: make(chan struct{})}
}

// Arm starts the countdown: totalTime ticks, one per interval. Subsequent
// calls are ignored; the window is a one-shot budget for the whole session.
func (w *windowController) Arm(totalTime int, interval time.Duration, tick func(remaining int), expire func()) {
	w.mu.Lock()
	if w.armed {
		w.mu.Unlock()
		return
	}
	w.armed = true
	w.mu.Unlock()

	go func() {
		defer close(w.done)
		w.run(totalTime, interval, tick, expire)
	}()
}

func (w *windowController) run(remaining int, interval time.Duration, tick func(remaining int), expire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			remaining--
			tick(remaining)
		}
	}

	w.mu.Lock()
	w.expired = true
	w.mu.Unlock()
	expire()
}

// Expired reports whether the window has lapsed.
func (w *windowController) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}

// Stop halts the countdown without expiring it, for sessions that end
// normally. It waits for the countdown goroutine to exit, so once Stop
// returns no more tick or expiry callbacks fire. Safe to call more than once.
func (w *windowController) Stop() {
	w.mu.Lock()
	armed := w.armed
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	w.mu.Unlock()

	if armed {
		<-w.done
	}
}
