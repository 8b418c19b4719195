package memory

import (
	"context"
	"sync"

	"blitz-quiz-service/internal/domain"
)

// Ledger is the in-memory implementation of app.CompletionLedger: an
// append-only record of finished sessions, shared by all connections.
// Subscribers receive a fresh snapshot after every append.
type Ledger struct {
	mu          sync.RWMutex
	records     []domain.CompletionRecord
	subscribers map[chan []domain.CompletionRecord]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		subscribers: make(map[chan []domain.CompletionRecord]struct{}),
	}
}

// Append adds one record. Existing entries are never mutated or removed.
func (l *Ledger) Append(_ context.Context, record domain.CompletionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	l.broadcastLocked()
	return nil
}

// Snapshot returns a read-consistent copy in completion order, safe to use
// while appends continue concurrently.
func (l *Ledger) Snapshot(_ context.Context) ([]domain.CompletionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked(), nil
}

// Subscribe returns a channel that receives the current snapshot immediately
// and a new snapshot after every append. The caller must invoke the returned
// cancel function to avoid leaks.
func (l *Ledger) Subscribe() (<-chan []domain.CompletionRecord, func()) {
	ch := make(chan []domain.CompletionRecord, 8)

	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	initial := l.snapshotLocked()
	l.mu.Unlock()

	ch <- initial

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

func (l *Ledger) broadcastLocked() {
	snap := l.snapshotLocked()
	for ch := range l.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale update so a slow dashboard never blocks a
			// completing session.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (l *Ledger) snapshotLocked() []domain.CompletionRecord {
	snap := make([]domain.CompletionRecord, len(l.records))
	copy(snap, l.records)
	return snap
}
