package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pahanaedu/bookshop/internal/domain"
)

func sampleBill(number string, customerID int64) domain.Bill {
	return domain.Bill{
		BillNumber:  number,
		CustomerID:  customerID,
		TotalAmount: decimal.RequireFromString("25.00"),
		Status:      domain.BillStatusPending,
		BillDate:    time.Now().UTC(),
		Lines: []domain.BillLine{
			{ItemID: 1, Qty: 2, UnitPrice: decimal.RequireFromString("10.00"), TotalPrice: decimal.RequireFromString("20.00")},
			{ItemID: 2, Qty: 1, UnitPrice: decimal.RequireFromString("5.00"), TotalPrice: decimal.RequireFromString("5.00")},
		},
	}
}

func TestBillRepositoryCreateAssignsIDs(t *testing.T) {
	repo := NewBillRepository()

	created, err := repo.Create(sampleBill("BILL-1", 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected bill id to be assigned")
	}
	if created.Version != 0 {
		t.Errorf("expected version 0, got %d", created.Version)
	}
	for i, line := range created.Lines {
		if line.ID == 0 {
			t.Errorf("line %d: expected line id to be assigned", i)
		}
		if line.BillID != created.ID {
			t.Errorf("line %d: expected bill id %d, got %d", i, created.ID, line.BillID)
		}
	}

	got, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(got.Lines))
	}
}

func TestBillRepositoryDuplicateNumber(t *testing.T) {
	repo := NewBillRepository()

	if _, err := repo.Create(sampleBill("BILL-1", 7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Create(sampleBill("BILL-1", 8)); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestBillRepositorySaveVersionConflict(t *testing.T) {
	repo := NewBillRepository()

	created, err := repo.Create(sampleBill("BILL-1", 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created.Status = domain.BillStatusPaid
	saved, err := repo.Save(created)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("expected version 1, got %d", saved.Version)
	}
	if saved.Status != domain.BillStatusPaid {
		t.Errorf("expected PAID, got %s", saved.Status)
	}

	// Повторный Save со старой версией проигрывает гонку.
	created.Status = domain.BillStatusCancelled
	if _, err := repo.Save(created); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestBillRepositoryListByStatusOrdersNewestFirst(t *testing.T) {
	repo := NewBillRepository()

	first := sampleBill("BILL-1", 7)
	first.BillDate = time.Now().Add(-time.Hour)
	second := sampleBill("BILL-2", 7)

	if _, err := repo.Create(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Create(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bills, err := repo.ListByStatus(domain.BillStatusPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("expected 2 bills, got %d", len(bills))
	}
	if bills[0].BillNumber != "BILL-2" {
		t.Errorf("expected newest bill first, got %s", bills[0].BillNumber)
	}
}

func TestBillRepositoryDelete(t *testing.T) {
	repo := NewBillRepository()

	created, err := repo.Create(sampleBill("BILL-1", 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Get(created.ID); !errors.Is(err, domain.ErrBillNotFound) {
		t.Fatalf("expected ErrBillNotFound, got %v", err)
	}
	if err := repo.Delete(created.ID); !errors.Is(err, domain.ErrBillNotFound) {
		t.Fatalf("expected ErrBillNotFound on double delete, got %v", err)
	}
}
