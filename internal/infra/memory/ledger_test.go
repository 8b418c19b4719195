package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"blitz-quiz-service/internal/domain"
)

func TestLedgerAppendAndSnapshot(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	first := record("Ada", 3, 4)
	second := record("Grace", 2, 2)
	if err := ledger.Append(ctx, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := ledger.Append(ctx, second); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap, err := ledger.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 2 || snap[0].Name != "Ada" || snap[1].Name != "Grace" {
		t.Fatalf("expected insertion order [Ada Grace], got %+v", snap)
	}
}

func TestLedgerSnapshotIsACopy(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	if err := ledger.Append(ctx, record("Ada", 1, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap, _ := ledger.Snapshot(ctx)
	snap[0].Name = "tampered"

	again, _ := ledger.Snapshot(ctx)
	if again[0].Name != "Ada" {
		t.Fatalf("snapshot aliased internal storage: %+v", again)
	}
}

func TestLedgerSubscribeReceivesUpdates(t *testing.T) {
	ledger := NewLedger()
	updates, cancel := ledger.Subscribe()
	defer cancel()

	initial := <-updates
	if len(initial) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	if err := ledger.Append(context.Background(), record("Ada", 1, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	update := <-updates
	if len(update) != 1 || update[0].Name != "Ada" {
		t.Fatalf("expected update with Ada, got %+v", update)
	}
}

func TestLedgerConcurrentAppends(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := ledger.Append(ctx, record(fmt.Sprintf("p%d", i), i, i)); err != nil {
				t.Errorf("append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	snap, err := ledger.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap) != 20 {
		t.Fatalf("expected 20 records, got %d", len(snap))
	}
}

func record(name string, score, answered int) domain.CompletionRecord {
	return domain.CompletionRecord{
		Name:        name,
		Score:       score,
		Answered:    answered,
		CompletedAt: time.Now(),
	}
}
