// Package pricing содержит чистую арифметику денежных сумм счёта.
// Все вычисления выполняются в точной десятичной арифметике, без
// двоичной плавающей точки.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// LineTotal возвращает сумму позиции: unitPrice * qty.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// OrderTotal возвращает сумму счёта как сумму позиций.
// Аккумулирует строго слева направо, поэтому результат детерминирован
// для фиксированного списка позиций.
func OrderTotal(lines []domain.BillLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.TotalPrice)
	}
	return total
}
