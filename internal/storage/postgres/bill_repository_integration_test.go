package postgres

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pahanaedu/bookshop/internal/domain"
)

func seedBill(t *testing.T, repo domain.BillRepository, number string) domain.Bill {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	line := domain.BillLine{ItemID: 1, Qty: 2, CreatedAt: now}
	line.SetUnitPrice(decimal.RequireFromString("10.00"))

	bill, err := repo.Create(domain.Bill{
		BillNumber:  number,
		CustomerID:  1,
		TotalAmount: decimal.RequireFromString("20.00"),
		Status:      domain.BillStatusPending,
		CreatedByID: 1,
		Lines:       []domain.BillLine{line},
		BillDate:    now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return bill
}

func TestBillRepositoryCreateAndGet(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewBillRepository(store)

	created := seedBill(t, repo, "BILL-INT-1")
	require.NotZero(t, created.ID)
	require.NotZero(t, created.Lines[0].ID)

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, "BILL-INT-1", got.BillNumber)
	require.Equal(t, domain.BillStatusPending, got.Status)
	require.True(t, got.TotalAmount.Equal(decimal.RequireFromString("20.00")))
	require.Len(t, got.Lines, 1)
	require.True(t, got.Lines[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	require.True(t, got.Lines[0].TotalPrice.Equal(decimal.RequireFromString("20.00")))

	byNumber, err := repo.GetByNumber("BILL-INT-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, byNumber.ID)

	_, err = repo.Get(99999)
	require.ErrorIs(t, err, domain.ErrBillNotFound)
}

func TestBillRepositoryDuplicateNumber(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewBillRepository(store)

	seedBill(t, repo, "BILL-INT-DUP")

	now := time.Now().UTC()
	_, err := repo.Create(domain.Bill{
		BillNumber:  "BILL-INT-DUP",
		CustomerID:  1,
		TotalAmount: decimal.Zero,
		Status:      domain.BillStatusPending,
		BillDate:    now,
		UpdatedAt:   now,
	})
	require.ErrorIs(t, err, domain.ErrDuplicateKey)
}

func TestBillRepositorySaveVersionConflict(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewBillRepository(store)

	bill := seedBill(t, repo, "BILL-INT-CAS")

	first := bill
	first.Status = domain.BillStatusPaid
	saved, err := repo.Save(first)
	require.NoError(t, err)
	require.Equal(t, bill.Version+1, saved.Version)

	// Вторая запись со старой версией проигрывает CAS.
	stale := bill
	stale.Status = domain.BillStatusCancelled
	_, err = repo.Save(stale)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	_, err = repo.Save(domain.Bill{ID: 99999, Status: domain.BillStatusPaid})
	require.ErrorIs(t, err, domain.ErrBillNotFound)
}

func TestBillRepositoryDeleteCascadesLines(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewBillRepository(store)

	bill := seedBill(t, repo, "BILL-INT-DEL")
	require.NoError(t, repo.Delete(bill.ID))

	_, err := repo.Get(bill.ID)
	require.ErrorIs(t, err, domain.ErrBillNotFound)

	var count int
	err = store.DB().QueryRow(`SELECT COUNT(*) FROM bill_lines WHERE bill_id = $1`, bill.ID).Scan(&count)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestBillRepositoryListByStatus(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewBillRepository(store)

	pending := seedBill(t, repo, "BILL-INT-P1")
	paid := seedBill(t, repo, "BILL-INT-P2")
	paid.Status = domain.BillStatusPaid
	_, err := repo.Save(paid)
	require.NoError(t, err)

	got, err := repo.ListByStatus(domain.BillStatusPending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, pending.ID, got[0].ID)
}
