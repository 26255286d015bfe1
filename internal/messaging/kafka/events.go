package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События счетов
	EventTypeBillCreated       EventType = "bill.created"
	EventTypeBillPaid          EventType = "bill.paid"
	EventTypeBillCancelled     EventType = "bill.cancelled"
	EventTypeBillDeleted       EventType = "bill.deleted"
	EventTypeBillStatusChanged EventType = "bill.status_changed"

	// События стока
	EventTypeStockReserved EventType = "stock.reserved"
	EventTypeStockReleased EventType = "stock.released"
)

// Topics для Kafka
const (
	TopicBillEvents      = "bookshop.bill.events"
	TopicStockEvents     = "bookshop.stock.events"
	TopicDeadLetterQueue = "bookshop.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// BillEvent представляет событие жизненного цикла счёта
type BillEvent struct {
	EventType  EventType              `json:"event_type"`
	BillID     int64                  `json:"bill_id"`
	BillNumber string                 `json:"bill_number,omitempty"`
	CustomerID int64                  `json:"customer_id,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewBillEvent создает новое событие счёта
func NewBillEvent(eventType EventType, billID int64, billNumber string, customerID int64, status string, metadata map[string]interface{}) *BillEvent {
	return &BillEvent{
		EventType:  eventType,
		BillID:     billID,
		BillNumber: billNumber,
		CustomerID: customerID,
		Status:     status,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}
