// Package billing реализует транзакцию оформления продажи: проверку
// клиента и позиций, резервирование стока, расчёт сумм, создание счёта и
// компенсирующий откат при любой ошибке. Для вызывающей стороны операция
// эквивалентна атомарной: либо сток списан и счёт записан целиком, либо
// ни того, ни другого.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/messaging/kafka"
	"github.com/pahanaedu/bookshop/internal/metrics"
	"github.com/pahanaedu/bookshop/internal/pricing"
)

const (
	// Число попыток пересоздать счёт при коллизии номера.
	maxBillNumberAttempts = 3
	// Число попыток сохранить статус при конфликте версий.
	maxStatusRetries = 3
	statusRetryDelay = 10 * time.Millisecond
)

// LineRequest — одна запрошенная позиция: товар и количество.
type LineRequest struct {
	ItemID int64
	Qty    int
}

// Coordinator управляет транзакцией оформления счёта и его жизненным циклом.
type Coordinator struct {
	bills         domain.BillRepository
	customers     domain.CustomerRepository
	items         domain.ItemRepository
	ledger        domain.InventoryLedger
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	logger        *log.Entry
	metrics       *metrics.BillingMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры
}

// NewCoordinator создаёт рабочий экземпляр координатора.
func NewCoordinator(
	bills domain.BillRepository,
	customers domain.CustomerRepository,
	items domain.ItemRepository,
	ledger domain.InventoryLedger,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "billing")
	}
	return &Coordinator{
		bills:     bills,
		customers: customers,
		items:     items,
		ledger:    ledger,
		outbox:    outbox,
		timeline:  timeline,
		logger:    logger,
		metrics:   metrics.NewBillingMetrics(),
	}
}

// NewCoordinatorWithKafka создаёт координатор с Kafka producer для event-driven архитектуры.
func NewCoordinatorWithKafka(
	bills domain.BillRepository,
	customers domain.CustomerRepository,
	items domain.ItemRepository,
	ledger domain.InventoryLedger,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Coordinator {
	c := NewCoordinator(bills, customers, items, ledger, outbox, timeline, logger)
	c.kafkaProducer = kafkaProducer
	return c
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(
	bills domain.BillRepository,
	customers domain.CustomerRepository,
	items domain.ItemRepository,
	ledger domain.InventoryLedger,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Coordinator {
	c := NewCoordinator(bills, customers, items, ledger, outbox, timeline, logger)
	c.metrics = nil
	return c
}

// CreateBill оформляет продажу: резервирует сток по каждой позиции в
// порядке запроса, считает суммы, записывает счёт со всеми позициями и
// возвращает его. Любая ошибка после первого успешного резерва (нехватка
// стока, отказ хранилища, отмена ctx) откатывает все сделанные резервы
// перед возвратом — частичное списание стока наружу не видно.
func (c *Coordinator) CreateBill(ctx context.Context, customerID int64, requested []LineRequest, actorID int64) (domain.Bill, error) {
	start := time.Now()
	if c.metrics != nil {
		c.metrics.RecordOrderStarted()
	}
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordOrderDuration(time.Since(start))
		}
	}()

	bill, err := c.createBill(ctx, customerID, requested, actorID)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordOrderFailed(failureReason(err))
		}
		return domain.Bill{}, err
	}

	if c.metrics != nil {
		c.metrics.RecordOrderCompleted()
	}
	return bill, nil
}

func (c *Coordinator) createBill(ctx context.Context, customerID int64, requested []LineRequest, actorID int64) (domain.Bill, error) {
	// Шаг 1: клиент. Валидация до каких-либо мутаций.
	customer, err := c.customers.Get(customerID)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("customer id=%d: %w", customerID, err)
	}

	if len(requested) == 0 {
		return domain.Bill{}, domain.ErrLinesRequired
	}

	// Шаг 2: позиции. Количество и существование товара проверяются до
	// первого резерва, в порядке запроса.
	for _, req := range requested {
		if req.Qty <= 0 {
			return domain.Bill{}, fmt.Errorf("item id=%d: %w", req.ItemID, domain.ErrInvalidQuantity)
		}
		if _, err := c.items.Get(req.ItemID); err != nil {
			return domain.Bill{}, fmt.Errorf("item id=%d: %w", req.ItemID, err)
		}
	}

	// Шаг 3: резервирование строго в порядке запроса. Цена каждой позиции —
	// снимок на момент резерва.
	now := time.Now().UTC()
	lines := make([]domain.BillLine, 0, len(requested))
	reserved := make([]LineRequest, 0, len(requested))
	for _, req := range requested {
		unitPrice, err := c.ledger.Reserve(req.ItemID, req.Qty)
		if err != nil {
			c.logger.WithError(err).WithField("item_id", req.ItemID).Warn("reserve failed")
			c.releaseReserved(reserved)
			return domain.Bill{}, err
		}
		reserved = append(reserved, req)

		line := domain.BillLine{
			ItemID:    req.ItemID,
			Qty:       req.Qty,
			CreatedAt: now,
		}
		line.SetUnitPrice(unitPrice)
		lines = append(lines, line)
	}

	// Отмена запроса после резервов — обычный сценарий отказа: сток
	// возвращается тем же компенсирующим путём.
	if err := ctx.Err(); err != nil {
		c.logger.WithError(err).Warn("request cancelled after reservations, releasing stock")
		c.releaseReserved(reserved)
		return domain.Bill{}, err
	}

	// Шаги 4-5: суммы в точной десятичной арифметике, слева направо.
	total := pricing.OrderTotal(lines)

	// Шаг 6: единая durable-запись шапки и позиций. Коллизия номера счёта
	// retryable: генерируем новый номер, не перезаписывая чужой счёт.
	var saved domain.Bill
	for attempt := 1; ; attempt++ {
		bill := domain.Bill{
			BillNumber:  generateBillNumber(),
			CustomerID:  customer.ID,
			TotalAmount: total,
			Status:      domain.BillStatusPending,
			CreatedByID: actorID,
			Lines:       lines,
			BillDate:    now,
			UpdatedAt:   now,
		}

		saved, err = c.bills.Create(bill)
		if err == nil {
			break
		}
		if domain.IsDuplicateKey(err) && attempt < maxBillNumberAttempts {
			if c.metrics != nil {
				c.metrics.RecordBillNumberRetry()
			}
			c.logger.WithField("attempt", attempt).Warn("bill number collision, regenerating")
			continue
		}

		c.logger.WithError(err).Error("failed to persist bill, releasing stock")
		c.releaseReserved(reserved)
		return domain.Bill{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	c.emitEvent(&saved, "BillCreated", map[string]interface{}{
		"bill_number": saved.BillNumber,
		"customer_id": saved.CustomerID,
		"total":       saved.TotalAmount.StringFixed(2),
		"lines_count": len(saved.Lines),
		"ts":          now.Format(time.RFC3339Nano),
	})
	c.publishBillEvent(kafka.EventTypeBillCreated, &saved, map[string]interface{}{
		"actor_id": actorID,
	})

	c.logger.WithFields(log.Fields{
		"bill_id":     saved.ID,
		"bill_number": saved.BillNumber,
		"customer_id": saved.CustomerID,
		"total":       saved.TotalAmount.StringFixed(2),
	}).Info("bill created")

	return saved, nil
}

// UpdateStatus переводит счёт в новый статус. Переходы намеренно не
// ограничены (в том числе из терминальных статусов) — это осознанно
// разрешительная политика, унаследованная от исходной системы, а не
// пропущенная проверка. Сумма счёта и сток при смене статуса не меняются.
func (c *Coordinator) UpdateStatus(billID int64, status domain.BillStatus) (domain.Bill, error) {
	if !status.Valid() {
		return domain.Bill{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	for attempt := 1; ; attempt++ {
		bill, err := c.bills.Get(billID)
		if err != nil {
			return domain.Bill{}, err
		}
		if bill.Status == status {
			return bill, nil
		}

		bill.Status = status
		bill.UpdatedAt = time.Now().UTC()

		saved, err := c.bills.Save(bill)
		if err != nil {
			if domain.IsVersionConflict(err) && attempt < maxStatusRetries {
				c.logger.WithFields(log.Fields{
					"bill_id": billID,
					"attempt": attempt,
				}).Warn("version conflict on status update, retrying")
				time.Sleep(statusRetryDelay * time.Duration(1<<uint(attempt-1)))
				continue
			}
			return domain.Bill{}, err
		}

		if c.metrics != nil {
			c.metrics.RecordStatusUpdate(string(status))
		}
		c.emitEvent(&saved, "BillStatusChanged", map[string]interface{}{
			"status":     string(saved.Status),
			"updated_at": saved.UpdatedAt.Format(time.RFC3339Nano),
			"ts":         saved.UpdatedAt.Format(time.RFC3339Nano),
		})
		c.publishBillEvent(kafka.EventTypeBillStatusChanged, &saved, nil)

		return saved, nil
	}
}

// DeleteBill удаляет счёт вместе с позициями. Сток проданных товаров при
// этом не восстанавливается — поведение исходной системы сохранено.
func (c *Coordinator) DeleteBill(billID int64) error {
	bill, err := c.bills.Get(billID)
	if err != nil {
		return err
	}

	if err := c.bills.Delete(billID); err != nil {
		return err
	}

	c.emitEvent(&bill, "BillDeleted", map[string]interface{}{
		"bill_number": bill.BillNumber,
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
	})
	c.publishBillEvent(kafka.EventTypeBillDeleted, &bill, nil)

	return nil
}

// GetBill возвращает счёт с позициями.
func (c *Coordinator) GetBill(billID int64) (domain.Bill, error) {
	return c.bills.Get(billID)
}

// GetBillByNumber возвращает счёт по уникальному номеру.
func (c *Coordinator) GetBillByNumber(billNumber string) (domain.Bill, error) {
	return c.bills.GetByNumber(billNumber)
}

// ListBills возвращает все счета, новые первыми.
func (c *Coordinator) ListBills() ([]domain.Bill, error) {
	return c.bills.List()
}

// ListBillsByCustomer возвращает счета клиента.
func (c *Coordinator) ListBillsByCustomer(customerID int64) ([]domain.Bill, error) {
	return c.bills.ListByCustomer(customerID)
}

// ListBillsByStatus возвращает счета в заданном статусе.
func (c *Coordinator) ListBillsByStatus(status domain.BillStatus) ([]domain.Bill, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	return c.bills.ListByStatus(status)
}

// Timeline возвращает историю событий счёта.
func (c *Coordinator) Timeline(billID int64) ([]domain.TimelineEvent, error) {
	if _, err := c.bills.Get(billID); err != nil {
		return nil, err
	}
	return c.timeline.List(billID)
}

// releaseReserved возвращает в сток все резервы текущего вызова в порядке,
// обратном резервированию.
func (c *Coordinator) releaseReserved(reserved []LineRequest) {
	if len(reserved) == 0 {
		return
	}
	if c.metrics != nil {
		c.metrics.RecordRollback()
	}
	for i := len(reserved) - 1; i >= 0; i-- {
		if err := c.ledger.Release(reserved[i].ItemID, reserved[i].Qty); err != nil {
			c.logger.WithError(err).WithField("item_id", reserved[i].ItemID).Error("compensating release failed")
		}
	}
}

func (c *Coordinator) emitEvent(bill *domain.Bill, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["bill_id"] = bill.ID
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"bill_id": bill.ID,
			"event":   eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "bill",
		AggregateID:   strconv.FormatInt(bill.ID, 10),
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := c.outbox.Enqueue(msg); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"bill_id": bill.ID,
			"event":   eventType,
		}).Error("enqueue event failed")
	} else if c.metrics != nil {
		c.metrics.RecordOutboxEvent()
	}

	if c.timeline != nil {
		var reason string
		if r, ok := payload["reason"].(string); ok {
			reason = r
		}
		occurred := time.Now().UTC()
		if ts, ok := payload["ts"].(string); ok {
			if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
				occurred = parsed
			}
		}
		event := domain.TimelineEvent{
			BillID:   bill.ID,
			Type:     eventType,
			Reason:   reason,
			Occurred: occurred,
		}
		if err := c.timeline.Append(event); err != nil {
			c.logger.WithError(err).WithFields(log.Fields{
				"bill_id": bill.ID,
				"event":   eventType,
			}).Warn("append timeline event failed")
		} else if c.metrics != nil {
			c.metrics.RecordTimelineEvent()
		}
	}
}

// publishBillEvent публикует событие счёта в Kafka (если producer настроен)
func (c *Coordinator) publishBillEvent(eventType kafka.EventType, bill *domain.Bill, metadata map[string]interface{}) {
	if c.kafkaProducer == nil {
		return // Kafka не настроен, пропускаем
	}

	event := kafka.NewBillEvent(eventType, bill.ID, bill.BillNumber, bill.CustomerID, string(bill.Status), metadata)
	key := strconv.FormatInt(bill.ID, 10)
	if err := c.kafkaProducer.PublishEvent(kafka.TopicBillEvents, key, event); err != nil {
		// Логируем ошибку, но транзакцию не прерываем - Kafka опциональный
		c.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"bill_id":    bill.ID,
		}).Warn("failed to publish bill event to kafka")
	}
}

// generateBillNumber выдаёт номер вида BILL<millis>-<суффикс>: метка
// времени даёт монотонность, случайный суффикс защищает от коллизий в
// пределах миллисекунды.
func generateBillNumber() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("BILL%d-%s", time.Now().UnixMilli(), strings.ToUpper(suffix))
}

// failureReason сводит ошибку к метке для метрик.
func failureReason(err error) string {
	switch {
	case domain.IsInsufficientStock(err):
		return "insufficient_stock"
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsVersionConflict(err):
		return "version_conflict"
	case domain.IsDuplicateKey(err):
		return "duplicate_key"
	case context.Canceled == err || context.DeadlineExceeded == err:
		return "cancelled"
	default:
		return "persistence"
	}
}
