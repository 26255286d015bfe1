package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item описывает товар каталога и его доступный сток.
type Item struct {
	ID int64
	// Code — уникальный внешний код товара; генерируется при создании,
	// если не задан.
	Code        string
	Name        string
	Description string
	// Price — цена за единицу, неотрицательная. По умолчанию 0.
	Price decimal.Decimal
	// StockQty — доступное количество на складе; никогда не опускается
	// ниже нуля. Мутируется только через InventoryLedger.
	StockQty int
	Category string
	// Version используется для optimistic locking при сохранении.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет базовые инварианты товара.
func (i *Item) Validate() []error {
	var errs []error

	if i.Price.IsNegative() {
		errs = append(errs, ErrLinePriceInvalid)
	}
	if i.StockQty < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}

