package memory

import (
	"sort"
	"sync"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// timelineRepositoryInMemory хранит события счетов в памяти (для разработки/тестов).
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[int64][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{events: make(map[int64][]domain.TimelineEvent)}
}

// Append добавляет событие в хранилище.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.BillID] = append(r.events[event.BillID], event)

	sort.Slice(r.events[event.BillID], func(i, j int) bool {
		return r.events[event.BillID][i].Occurred.Before(r.events[event.BillID][j].Occurred)
	})

	return nil
}

// List возвращает события счёта в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(billID int64) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[billID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
