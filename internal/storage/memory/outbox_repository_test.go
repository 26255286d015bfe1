package memory

import (
	"errors"
	"testing"

	"github.com/pahanaedu/bookshop/internal/domain"
)

func TestOutboxEnqueueGeneratesID(t *testing.T) {
	repo := NewOutboxRepository()

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "bill",
		AggregateID:   "42",
		EventType:     "BillCreated",
		Payload:       []byte(`{"bill_id":42}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID == "" {
		t.Error("expected generated message id")
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(pending))
	}
	if pending[0].EventType != "BillCreated" {
		t.Errorf("unexpected event type: %s", pending[0].EventType)
	}
}

func TestOutboxMarkSentRemovesFromBacklog(t *testing.T) {
	repo := NewOutboxRepository()

	msg, err := repo.Enqueue(domain.OutboxMessage{EventType: "BillCreated"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Errorf("expected empty backlog, got %d", stats.PendingCount)
	}
	if len(repo.AllPending()) != 0 {
		t.Error("expected no pending messages")
	}
}

func TestOutboxMarkUnknownID(t *testing.T) {
	repo := NewOutboxRepository()

	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish, got %v", err)
	}
	if err := repo.MarkFailed("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish, got %v", err)
	}
}

func TestOutboxStatsTracksOldestPending(t *testing.T) {
	repo := NewOutboxRepository()

	if _, err := repo.Enqueue(domain.OutboxMessage{EventType: "BillCreated"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Enqueue(domain.OutboxMessage{EventType: "BillStatusChanged"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Errorf("expected 2 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Error("expected oldest pending timestamp to be set")
	}
}
