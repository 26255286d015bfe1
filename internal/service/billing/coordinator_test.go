package billing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/service/ledger"
	"github.com/pahanaedu/bookshop/internal/storage/memory"
)

type testEnv struct {
	coordinator *Coordinator
	bills       domain.BillRepository
	customers   domain.CustomerRepository
	items       domain.ItemRepository
	ledger      domain.InventoryLedger
	outbox      domain.OutboxRepository
	timeline    domain.TimelineRepository

	customerID int64
	itemA      int64 // 10.00, сток 10
	itemB      int64 // 5.00, сток 5
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	items := memory.NewItemRepository()
	customers := memory.NewCustomerRepository()
	bills := memory.NewBillRepository()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	stock := ledger.New(items, nil)

	customer, err := customers.Create(domain.Customer{
		AccountNumber: "ACC-001",
		Name:          "Nimal Perera",
	})
	require.NoError(t, err)

	itemA, err := items.Create(domain.Item{
		Code:     "ITEM-A",
		Name:     "Clean Code",
		Price:    decimal.RequireFromString("10.00"),
		StockQty: 10,
	})
	require.NoError(t, err)

	itemB, err := items.Create(domain.Item{
		Code:     "ITEM-B",
		Name:     "The Go Programming Language",
		Price:    decimal.RequireFromString("5.00"),
		StockQty: 5,
	})
	require.NoError(t, err)

	logger := log.New()
	logger.SetLevel(log.ErrorLevel)

	c := NewCoordinatorWithoutMetrics(
		bills, customers, items, stock, outbox, timeline,
		logger.WithField("component", "billing-test"),
	)

	return &testEnv{
		coordinator: c,
		bills:       bills,
		customers:   customers,
		items:       items,
		ledger:      stock,
		outbox:      outbox,
		timeline:    timeline,
		customerID:  customer.ID,
		itemA:       itemA.ID,
		itemB:       itemB.ID,
	}
}

func (e *testEnv) availability(t *testing.T, itemID int64) int {
	t.Helper()
	qty, err := e.ledger.Availability(itemID)
	require.NoError(t, err)
	return qty
}

func TestCreateBillSuccess(t *testing.T) {
	env := newTestEnv(t)

	bill, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 2},
		{ItemID: env.itemB, Qty: 1},
	}, 1)
	require.NoError(t, err)

	require.NotZero(t, bill.ID)
	require.NotEmpty(t, bill.BillNumber)
	require.Equal(t, domain.BillStatusPending, bill.Status)
	require.Equal(t, "25.00", bill.TotalAmount.StringFixed(2))
	require.Len(t, bill.Lines, 2)

	// Позиции несут снимок цены и согласованные суммы.
	require.Equal(t, "10.00", bill.Lines[0].UnitPrice.StringFixed(2))
	require.Equal(t, "20.00", bill.Lines[0].TotalPrice.StringFixed(2))
	require.Equal(t, "5.00", bill.Lines[1].TotalPrice.StringFixed(2))
	require.Empty(t, bill.ValidateInvariants())

	// Сток списан ровно на заказанное.
	require.Equal(t, 8, env.availability(t, env.itemA))
	require.Equal(t, 4, env.availability(t, env.itemB))

	// Счёт читается обратно с теми же суммами.
	stored, err := env.coordinator.GetBill(bill.ID)
	require.NoError(t, err)
	require.True(t, stored.TotalAmount.Equal(bill.TotalAmount))
	require.Len(t, stored.Lines, 2)

	byNumber, err := env.coordinator.GetBillByNumber(bill.BillNumber)
	require.NoError(t, err)
	require.Equal(t, bill.ID, byNumber.ID)

	events, err := env.timeline.List(bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "BillCreated", events[0].Type)
}

func TestCreateBillPriceSnapshot(t *testing.T) {
	env := newTestEnv(t)

	bill, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 1},
	}, 1)
	require.NoError(t, err)

	// Поднимаем цену в каталоге после продажи.
	item, err := env.items.Get(env.itemA)
	require.NoError(t, err)
	item.Price = decimal.RequireFromString("99.99")
	_, err = env.items.Save(item)
	require.NoError(t, err)

	stored, err := env.coordinator.GetBill(bill.ID)
	require.NoError(t, err)
	require.Equal(t, "10.00", stored.Lines[0].UnitPrice.StringFixed(2))
	require.Equal(t, "10.00", stored.TotalAmount.StringFixed(2))
}

func TestCreateBillCustomerNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coordinator.CreateBill(context.Background(), 9999, []LineRequest{
		{ItemID: env.itemA, Qty: 1},
	}, 1)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	require.Equal(t, 10, env.availability(t, env.itemA))
	bills, err := env.coordinator.ListBills()
	require.NoError(t, err)
	require.Empty(t, bills)
}

func TestCreateBillItemNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 1},
		{ItemID: 404, Qty: 1},
	}, 1)
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	// Валидация шла до резервов: сток нетронут.
	require.Equal(t, 10, env.availability(t, env.itemA))
}

func TestCreateBillInvalidQuantity(t *testing.T) {
	env := newTestEnv(t)

	for _, qty := range []int{0, -3} {
		_, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
			{ItemID: env.itemA, Qty: qty},
		}, 1)
		require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}

	require.Equal(t, 10, env.availability(t, env.itemA))
}

func TestCreateBillEmptyLines(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coordinator.CreateBill(context.Background(), env.customerID, nil, 1)
	require.ErrorIs(t, err, domain.ErrLinesRequired)
}

func TestCreateBillInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)

	// Третья позиция требует больше, чем есть: резервы первых двух должны
	// откатиться полностью.
	_, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 2},
		{ItemID: env.itemB, Qty: 1},
		{ItemID: env.itemA, Qty: 100},
	}, 1)
	require.Error(t, err)
	require.True(t, domain.IsInsufficientStock(err))

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, env.itemA, stockErr.ItemID)
	require.Equal(t, "Clean Code", stockErr.ItemName)
	require.Equal(t, 100, stockErr.Requested)

	require.Equal(t, 10, env.availability(t, env.itemA))
	require.Equal(t, 5, env.availability(t, env.itemB))

	bills, err := env.coordinator.ListBills()
	require.NoError(t, err)
	require.Empty(t, bills)
}

func TestCreateBillContextCancelled(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.coordinator.CreateBill(ctx, env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 3},
	}, 1)
	require.ErrorIs(t, err, context.Canceled)

	// Отмена — обычный отказ: сток возвращён, счёта нет.
	require.Equal(t, 10, env.availability(t, env.itemA))
	bills, err := env.coordinator.ListBills()
	require.NoError(t, err)
	require.Empty(t, bills)
}

// createFailRepo подменяет Create, чтобы смоделировать коллизию номера или
// отказ хранилища.
type createFailRepo struct {
	domain.BillRepository
	mu    sync.Mutex
	fails int
	err   error
	calls int
}

func (r *createFailRepo) Create(bill domain.Bill) (domain.Bill, error) {
	r.mu.Lock()
	r.calls++
	failing := r.calls <= r.fails
	r.mu.Unlock()

	if failing {
		return domain.Bill{}, r.err
	}
	return r.BillRepository.Create(bill)
}

func TestCreateBillNumberCollisionRetried(t *testing.T) {
	env := newTestEnv(t)

	flaky := &createFailRepo{
		BillRepository: env.bills,
		fails:          2,
		err:            domain.ErrDuplicateKey,
	}
	env.coordinator.bills = flaky

	bill, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 1},
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 3, flaky.calls)
	require.NotEmpty(t, bill.BillNumber)
	require.Equal(t, 9, env.availability(t, env.itemA))
}

func TestCreateBillNumberCollisionExhausted(t *testing.T) {
	env := newTestEnv(t)

	flaky := &createFailRepo{
		BillRepository: env.bills,
		fails:          maxBillNumberAttempts,
		err:            domain.ErrDuplicateKey,
	}
	env.coordinator.bills = flaky

	_, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 1},
	}, 1)
	require.ErrorIs(t, err, domain.ErrPersistence)

	// Резерв откатился.
	require.Equal(t, 10, env.availability(t, env.itemA))
}

func TestCreateBillPersistenceFailureReleasesStock(t *testing.T) {
	env := newTestEnv(t)

	flaky := &createFailRepo{
		BillRepository: env.bills,
		fails:          1,
		err:            errors.New("disk on fire"),
	}
	env.coordinator.bills = flaky

	_, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 4},
		{ItemID: env.itemB, Qty: 2},
	}, 1)
	require.ErrorIs(t, err, domain.ErrPersistence)

	require.Equal(t, 10, env.availability(t, env.itemA))
	require.Equal(t, 5, env.availability(t, env.itemB))
}

func TestConcurrentCreateBillNoOversell(t *testing.T) {
	env := newTestEnv(t)

	// Сток 10, каждый заказ по 3: пройти могут ровно три заказа.
	const (
		workers  = 8
		perOrder = 3
	)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
				{ItemID: env.itemA, Qty: perOrder},
			}, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, domain.IsInsufficientStock(err), "unexpected error: %v", err)
		rejected++
	}

	require.Equal(t, 3, succeeded)
	require.Equal(t, workers-3, rejected)
	require.Equal(t, 1, env.availability(t, env.itemA))

	bills, err := env.coordinator.ListBills()
	require.NoError(t, err)
	require.Len(t, bills, 3)
}

func TestUpdateStatusPreservesTotalAndStock(t *testing.T) {
	env := newTestEnv(t)

	bill, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 2},
	}, 1)
	require.NoError(t, err)

	updated, err := env.coordinator.UpdateStatus(bill.ID, domain.BillStatusPaid)
	require.NoError(t, err)
	require.Equal(t, domain.BillStatusPaid, updated.Status)
	require.Equal(t, "20.00", updated.TotalAmount.StringFixed(2))
	require.Equal(t, 8, env.availability(t, env.itemA))

	// Переходы разрешительные: из PAID можно вернуться в PENDING.
	back, err := env.coordinator.UpdateStatus(bill.ID, domain.BillStatusPending)
	require.NoError(t, err)
	require.Equal(t, domain.BillStatusPending, back.Status)

	// Отмена после создания сток не восстанавливает.
	cancelled, err := env.coordinator.UpdateStatus(bill.ID, domain.BillStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, domain.BillStatusCancelled, cancelled.Status)
	require.Equal(t, 8, env.availability(t, env.itemA))
}

func TestUpdateStatusNoopWhenUnchanged(t *testing.T) {
	env := newTestEnv(t)

	bill, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 1},
	}, 1)
	require.NoError(t, err)

	same, err := env.coordinator.UpdateStatus(bill.ID, domain.BillStatusPending)
	require.NoError(t, err)
	require.Equal(t, bill.Version, same.Version)

	events, err := env.timeline.List(bill.ID)
	require.NoError(t, err)
	require.Len(t, events, 1) // только BillCreated
}

func TestUpdateStatusInvalid(t *testing.T) {
	env := newTestEnv(t)

	bill, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 1},
	}, 1)
	require.NoError(t, err)

	_, err = env.coordinator.UpdateStatus(bill.ID, domain.BillStatus("SHIPPED"))
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestUpdateStatusBillNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coordinator.UpdateStatus(777, domain.BillStatusPaid)
	require.ErrorIs(t, err, domain.ErrBillNotFound)
}

func TestDeleteBillKeepsStock(t *testing.T) {
	env := newTestEnv(t)

	bill, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 4},
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 6, env.availability(t, env.itemA))

	require.NoError(t, env.coordinator.DeleteBill(bill.ID))

	_, err = env.coordinator.GetBill(bill.ID)
	require.ErrorIs(t, err, domain.ErrBillNotFound)

	// Удаление счёта не компенсирует продажу.
	require.Equal(t, 6, env.availability(t, env.itemA))
}

func TestListBillsByStatus(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemA, Qty: 1},
	}, 1)
	require.NoError(t, err)
	second, err := env.coordinator.CreateBill(context.Background(), env.customerID, []LineRequest{
		{ItemID: env.itemB, Qty: 1},
	}, 1)
	require.NoError(t, err)

	_, err = env.coordinator.UpdateStatus(second.ID, domain.BillStatusPaid)
	require.NoError(t, err)

	pending, err := env.coordinator.ListBillsByStatus(domain.BillStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, first.ID, pending[0].ID)

	paid, err := env.coordinator.ListBillsByStatus(domain.BillStatusPaid)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	require.Equal(t, second.ID, paid[0].ID)

	_, err = env.coordinator.ListBillsByStatus(domain.BillStatus("REFUNDED"))
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
}
