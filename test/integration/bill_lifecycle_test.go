package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/service/billing"
	"github.com/pahanaedu/bookshop/internal/service/catalog"
	"github.com/pahanaedu/bookshop/internal/service/ledger"
	"github.com/pahanaedu/bookshop/internal/service/outbox"
	"github.com/pahanaedu/bookshop/internal/storage/memory"
)

// capturingPublisher собирает опубликованные события вместо Kafka.
type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.OutboxMessage
}

func (p *capturingPublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []domain.OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]domain.OutboxMessage, len(p.events))
	copy(result, p.events)
	return result
}

// BillLifecycleTestSuite проверяет полный жизненный цикл счёта: оформление,
// публикацию событий через outbox-воркер, смену статуса и удаление.
type BillLifecycleTestSuite struct {
	suite.Suite
	bills     *billing.Coordinator
	items     *catalog.ItemService
	timeline  domain.TimelineRepository
	worker    *outbox.Worker
	publisher *capturingPublisher
	customer  domain.Customer
	book      domain.Item
}

func (s *BillLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	billRepo := memory.NewBillRepository()
	customerRepo := memory.NewCustomerRepository()
	itemRepo := memory.NewItemRepository()
	outboxRepo := memory.NewOutboxRepository()
	s.timeline = memory.NewTimelineRepository()

	inventory := ledger.New(itemRepo, logger)
	s.bills = billing.NewCoordinatorWithoutMetrics(
		billRepo, customerRepo, itemRepo, inventory, outboxRepo, s.timeline, logger,
	)
	s.items = catalog.NewItemService(itemRepo, inventory, logger)
	customers := catalog.NewCustomerService(customerRepo, logger)

	s.publisher = &capturingPublisher{}
	s.worker = outbox.NewWorker(outboxRepo, s.publisher, outbox.WithLogger(logger))

	customer, err := customers.Create(domain.Customer{
		AccountNumber: "ACC-001",
		Name:          "Nimal Perera",
	})
	require.NoError(s.T(), err)
	s.customer = customer

	book, err := s.items.Create(domain.Item{
		Code:     "BOOK-001",
		Name:     "Clean Code",
		Price:    decimal.RequireFromString("10.00"),
		StockQty: 10,
	})
	require.NoError(s.T(), err)
	s.book = book
}

func (s *BillLifecycleTestSuite) TestFullLifecycle() {
	ctx := context.Background()

	bill, err := s.bills.CreateBill(ctx, s.customer.ID, []billing.LineRequest{
		{ItemID: s.book.ID, Qty: 3},
	}, 0)
	s.Require().NoError(err)
	s.Require().Equal("30.00", bill.TotalAmount.StringFixed(2))
	s.Require().Equal(domain.BillStatusPending, bill.Status)

	item, err := s.items.Get(s.book.ID)
	s.Require().NoError(err)
	s.Require().Equal(7, item.StockQty)

	// Outbox-воркер публикует событие оформления.
	s.worker.ProcessOnce(ctx)
	published := s.publisher.published()
	s.Require().Len(published, 1)
	s.Require().Equal("BillCreated", published[0].EventType)

	paid, err := s.bills.UpdateStatus(bill.ID, domain.BillStatusPaid)
	s.Require().NoError(err)
	s.Require().Equal(domain.BillStatusPaid, paid.Status)
	s.Require().Equal(bill.TotalAmount.StringFixed(2), paid.TotalAmount.StringFixed(2))

	s.worker.ProcessOnce(ctx)
	published = s.publisher.published()
	s.Require().Len(published, 2)
	s.Require().Equal("BillStatusChanged", published[1].EventType)

	events, err := s.bills.Timeline(bill.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	// Удаление не восстанавливает сток.
	s.Require().NoError(s.bills.DeleteBill(bill.ID))
	item, err = s.items.Get(s.book.ID)
	s.Require().NoError(err)
	s.Require().Equal(7, item.StockQty)

	_, err = s.bills.GetBill(bill.ID)
	s.Require().ErrorIs(err, domain.ErrBillNotFound)
}

func (s *BillLifecycleTestSuite) TestInsufficientStockLeavesNoTrace() {
	ctx := context.Background()

	_, err := s.bills.CreateBill(ctx, s.customer.ID, []billing.LineRequest{
		{ItemID: s.book.ID, Qty: 11},
	}, 0)
	s.Require().Error(err)
	s.Require().True(domain.IsInsufficientStock(err))

	item, err := s.items.Get(s.book.ID)
	s.Require().NoError(err)
	s.Require().Equal(10, item.StockQty)

	bills, err := s.bills.ListBills()
	s.Require().NoError(err)
	s.Require().Empty(bills)

	s.worker.ProcessOnce(ctx)
	s.Require().Empty(s.publisher.published())
}

func TestBillLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(BillLifecycleTestSuite))
}
