package memory_test

import (
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestOutboxRepository_EnqueueAssignsID(t *testing.T) {
	repo := memory.NewOutboxRepository()

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "checkout",
		AggregateID:   "order-1",
		EventType:     "checkout.completed",
		Payload:       []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if msg.ID == "" {
		t.Error("expected generated ID")
	}
}

func TestOutboxRepository_PullPendingOrderAndLimit(t *testing.T) {
	repo := memory.NewOutboxRepository()

	first, _ := repo.Enqueue(domain.OutboxMessage{ID: "m1", EventType: "order.created"})
	repo.Enqueue(domain.OutboxMessage{ID: "m2", EventType: "checkout.completed"})

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].ID != first.ID {
		t.Errorf("expected oldest first, got %s", pending[0].ID)
	}

	limited, err := repo.PullPending(1)
	if err != nil {
		t.Fatalf("pull with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 message with limit, got %d", len(limited))
	}
}

func TestOutboxRepository_MarkSentRemovesFromPending(t *testing.T) {
	repo := memory.NewOutboxRepository()

	msg, _ := repo.Enqueue(domain.OutboxMessage{EventType: "checkout.completed"})
	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	pending, _ := repo.PullPending(10)
	if len(pending) != 0 {
		t.Errorf("expected empty pending after MarkSent, got %d", len(pending))
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Errorf("expected 0 pending in stats, got %d", stats.PendingCount)
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := memory.NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Errorf("unexpected stats for empty repo: %+v", stats)
	}

	repo.Enqueue(domain.OutboxMessage{EventType: "stock.depleted"})
	repo.Enqueue(domain.OutboxMessage{EventType: "checkout.rejected"})

	stats, _ = repo.Stats()
	if stats.PendingCount != 2 {
		t.Errorf("expected 2 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Error("expected OldestPendingAt to be set")
	}
}

func TestOutboxRepository_MarkUnknownID(t *testing.T) {
	repo := memory.NewOutboxRepository()

	if err := repo.MarkSent("missing"); err == nil {
		t.Error("expected error for unknown id on MarkSent")
	}
	if err := repo.MarkFailed("missing"); err == nil {
		t.Error("expected error for unknown id on MarkFailed")
	}
}
