package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"blitz-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const ledgerKey = "quiz:ledger"

// Ledger is a Redis-backed implementation of app.CompletionLedger.
// Notes:
//   - Records are kept in a Redis list (RPUSH/LRANGE), so completion order is
//     insertion order and the list survives a server restart.
//   - Change notifications stay in-process; for true distribution you'd pair
//     this with Redis pub/sub to fan updates out across instances.
type Ledger struct {
	client      *redis.Client
	mu          sync.Mutex
	subscribers map[chan []domain.CompletionRecord]struct{}
}

func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{
		client:      client,
		subscribers: make(map[chan []domain.CompletionRecord]struct{}),
	}
}

// Append pushes one record onto the list and notifies subscribers.
func (l *Ledger) Append(ctx context.Context, record domain.CompletionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal completion record: %w", err)
	}
	if err := l.client.RPush(ctx, ledgerKey, data).Err(); err != nil {
		return fmt.Errorf("append completion record: %w", err)
	}

	snap, err := l.Snapshot(ctx)
	if err != nil {
		return err
	}
	l.broadcast(snap)
	return nil
}

// Snapshot reads the whole list in completion order.
func (l *Ledger) Snapshot(ctx context.Context) ([]domain.CompletionRecord, error) {
	raw, err := l.client.LRange(ctx, ledgerKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read completion ledger: %w", err)
	}
	records := make([]domain.CompletionRecord, 0, len(raw))
	for _, item := range raw {
		var record domain.CompletionRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("unmarshal completion record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Subscribe mirrors the in-memory ledger: the current snapshot first, then a
// snapshot after every append from this process. Registration and the initial
// snapshot happen under the same lock that broadcasts take, so an append can
// never slip between them unseen.
func (l *Ledger) Subscribe() (<-chan []domain.CompletionRecord, func()) {
	ch := make(chan []domain.CompletionRecord, 8)

	l.mu.Lock()
	snap, err := l.Snapshot(context.Background())
	if err != nil {
		log.Printf("read ledger for new subscriber failed: %v", err)
		snap = nil
	}
	l.subscribers[ch] = struct{}{}
	ch <- snap
	l.mu.Unlock()

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

func (l *Ledger) broadcast(snap []domain.CompletionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
