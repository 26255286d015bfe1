package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/pahanaedu/bookshop/internal/domain"
)

func TestIdempotencyCreateProcessing(t *testing.T) {
	repo := NewIdempotencyRepository()

	record, err := repo.CreateProcessing("key-1", "hash-1", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Errorf("expected processing, got %s", record.Status)
	}
	if record.TTLAt.IsZero() {
		t.Error("expected default TTL to be set")
	}

	// Повтор с тем же телом получает существующую запись.
	existing, err := repo.CreateProcessing("key-1", "hash-1", time.Time{})
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if existing.Key != "key-1" {
		t.Errorf("unexpected record key: %s", existing.Key)
	}

	// Повтор с другим телом отклоняется.
	if _, err := repo.CreateProcessing("key-1", "hash-2", time.Time{}); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}
}

func TestIdempotencyValidation(t *testing.T) {
	repo := NewIdempotencyRepository()

	if _, err := repo.CreateProcessing("  ", "hash", time.Time{}); !errors.Is(err, domain.ErrIdempotencyKeyRequired) {
		t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
	}
	if _, err := repo.CreateProcessing("key", "  ", time.Time{}); !errors.Is(err, domain.ErrIdempotencyRequestHashRequired) {
		t.Fatalf("expected ErrIdempotencyRequestHashRequired, got %v", err)
	}
}

func TestIdempotencyMarkDoneAndGet(t *testing.T) {
	repo := NewIdempotencyRepository()

	if _, err := repo.CreateProcessing("key-1", "hash-1", time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.MarkDone("key-1", []byte(`{"id":1}`), 201); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, err := repo.Get("key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != domain.IdempotencyStatusDone {
		t.Errorf("expected done, got %s", record.Status)
	}
	if record.HTTPStatus != 201 {
		t.Errorf("expected 201, got %d", record.HTTPStatus)
	}
	if string(record.ResponseBody) != `{"id":1}` {
		t.Errorf("unexpected body: %s", record.ResponseBody)
	}

	if err := repo.MarkFailed("missing", nil, 500); !errors.Is(err, domain.ErrIdempotencyNotFound) {
		t.Fatalf("expected ErrIdempotencyNotFound, got %v", err)
	}
	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrIdempotencyNotFound) {
		t.Fatalf("expected ErrIdempotencyNotFound, got %v", err)
	}
}

func TestIdempotencyDeleteExpired(t *testing.T) {
	repo := NewIdempotencyRepository()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("old-1", "h", past); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.CreateProcessing("old-2", "h", past); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.CreateProcessing("fresh", "h", future); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted, err := repo.DeleteExpired(time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	if _, err := repo.Get("fresh"); err != nil {
		t.Errorf("expected fresh record to survive, got %v", err)
	}
	if _, err := repo.Get("old-1"); !errors.Is(err, domain.ErrIdempotencyNotFound) {
		t.Errorf("expected old record to be deleted, got %v", err)
	}
}
