package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus описывает жизненный цикл счёта.
type BillStatus string

const (
	// BillStatusPending — счёт создан, оплата ещё не зафиксирована.
	BillStatusPending BillStatus = "PENDING"
	// BillStatusPaid — оплата по счёту подтверждена. Терминальный статус.
	BillStatusPaid BillStatus = "PAID"
	// BillStatusCancelled — счёт отменён. Терминальный статус.
	BillStatusCancelled BillStatus = "CANCELLED"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s BillStatus) Valid() bool {
	switch s {
	case BillStatusPending, BillStatusPaid, BillStatusCancelled:
		return true
	default:
		return false
	}
}

// BillLine представляет одну позицию счёта.
//
// UnitPrice — снимок цены товара на момент резервирования; последующие
// изменения цены в каталоге на позицию не влияют.
type BillLine struct {
	ID     int64
	BillID int64
	// ItemID — ссылка на товар каталога.
	ItemID int64
	// Qty — количество единиц товара, строго больше нуля.
	Qty int
	// UnitPrice — цена за единицу на момент продажи.
	UnitPrice decimal.Decimal
	// TotalPrice всегда равен UnitPrice * Qty; пересчитывается через
	// SetQty/SetUnitPrice.
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

// SetQty задаёт количество и пересчитывает сумму позиции.
func (l *BillLine) SetQty(qty int) {
	l.Qty = qty
	l.recalculate()
}

// SetUnitPrice задаёт цену за единицу и пересчитывает сумму позиции.
func (l *BillLine) SetUnitPrice(price decimal.Decimal) {
	l.UnitPrice = price
	l.recalculate()
}

func (l *BillLine) recalculate() {
	l.TotalPrice = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Bill агрегирует счёт и его позиции. Счёт монопольно владеет своими
// позициями: они создаются и удаляются только вместе с ним.
type Bill struct {
	ID int64
	// BillNumber — уникальный человекочитаемый номер счёта.
	BillNumber string
	// CustomerID — ссылка на клиента (ровно один клиент на счёт).
	CustomerID int64
	// TotalAmount — сумма всех позиций на момент создания; смена статуса
	// сумму не пересчитывает.
	TotalAmount decimal.Decimal
	Status      BillStatus
	// CreatedByID — пользователь, оформивший счёт.
	CreatedByID int64
	Lines       []BillLine
	Version     int64
	BillDate    time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты счёта и возвращает список замечаний.
func (b *Bill) ValidateInvariants() []error {
	var errs []error

	if b.CustomerID == 0 {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(b.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if b.TotalAmount.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму счёта с суммой позиций: qty * unit price, слева направо.
	sum := decimal.Zero
	for _, line := range b.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, ErrLinePriceInvalid)
		}
		expected := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty)))
		if !line.TotalPrice.Equal(expected) {
			errs = append(errs, ErrLineTotalMismatch)
		}
		sum = sum.Add(line.TotalPrice)
	}
	if !sum.Equal(b.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
