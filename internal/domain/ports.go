package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryLedger владеет стоком товаров и сериализует его изменения.
// Сток мутируется только через Reserve/Release, никогда прямым
// присваиванием поля.
type InventoryLedger interface {
	// Availability возвращает доступное количество или ErrItemNotFound.
	Availability(itemID int64) (int, error)
	// Reserve атомарно уменьшает сток на qty и возвращает цену за единицу
	// на момент резервирования (снимок для позиции счёта).
	// ErrInvalidQuantity при qty <= 0, *InsufficientStockError при
	// нехватке стока.
	Reserve(itemID int64, qty int) (decimal.Decimal, error)
	// Release возвращает qty единиц в сток; компенсация неудачной
	// транзакции.
	Release(itemID int64, qty int) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineEvent описывает событие в жизненном цикле счёта.
type TimelineEvent struct {
	BillID   int64
	Type     string
	Reason   string
	Occurred time.Time
}

// TimelineRepository хранит события жизненного цикла счёта.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(billID int64) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
