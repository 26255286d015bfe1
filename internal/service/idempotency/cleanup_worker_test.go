package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pahanaedu/bookshop/internal/domain"
)

type stubIdempotencyRepo struct {
	batches []int
	calls   int
	err     error
}

func (s *stubIdempotencyRepo) CreateProcessing(key, requestHash string, ttlAt time.Time) (domain.IdempotencyRecord, error) {
	return domain.IdempotencyRecord{}, nil
}

func (s *stubIdempotencyRepo) Get(key string) (domain.IdempotencyRecord, error) {
	return domain.IdempotencyRecord{}, domain.ErrIdempotencyNotFound
}

func (s *stubIdempotencyRepo) MarkDone(key string, responseBody []byte, httpStatus int) error {
	return nil
}

func (s *stubIdempotencyRepo) MarkFailed(key string, responseBody []byte, httpStatus int) error {
	return nil
}

func (s *stubIdempotencyRepo) DeleteExpired(before time.Time, limit int) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.calls >= len(s.batches) {
		return 0, nil
	}
	deleted := s.batches[s.calls]
	s.calls++
	return deleted, nil
}

var _ domain.IdempotencyRepository = (*stubIdempotencyRepo)(nil)

func TestDeleteExpiredDrainsInBatches(t *testing.T) {
	t.Parallel()

	// Две полные порции и одна неполная: воркер должен остановиться после неё.
	repo := &stubIdempotencyRepo{batches: []int{5, 5, 2}}
	worker := NewCleanupWorker(repo, WithBatchSize(5))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 12 {
		t.Fatalf("expected 12 deleted, got %d", deleted)
	}
	if repo.calls != 3 {
		t.Fatalf("expected 3 repo calls, got %d", repo.calls)
	}
}

func TestDeleteExpiredPropagatesError(t *testing.T) {
	t.Parallel()

	repo := &stubIdempotencyRepo{err: errors.New("storage down")}
	worker := NewCleanupWorker(repo, WithBatchSize(10))

	if _, err := worker.DeleteExpired(context.Background(), time.Now().UTC()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestDeleteExpiredStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &stubIdempotencyRepo{batches: []int{5, 5, 5}}
	worker := NewCleanupWorker(repo, WithBatchSize(5))

	_, err := worker.DeleteExpired(ctx, time.Now().UTC())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("expected no repo calls, got %d", repo.calls)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewCleanupWorker(&stubIdempotencyRepo{}, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
