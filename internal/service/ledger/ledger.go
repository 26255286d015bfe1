// Package ledger реализует складской регистр: единственную точку мутации
// стока товаров. Конкурентные резервы по одному товару сериализуются через
// optimistic locking репозитория: читаем количество, пробуем условное
// уменьшение, при конфликте версий повторяем. Сумма успешных резервов
// никогда не превышает доступный сток, сток никогда не уходит в минус.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/pahanaedu/bookshop/internal/domain"
)

const (
	casBaseDelay = 2 * time.Millisecond
	casMaxDelay  = 100 * time.Millisecond
)

// Service — реализация domain.InventoryLedger поверх ItemRepository.
type Service struct {
	items  domain.ItemRepository
	logger *log.Entry
}

// New создаёт складской регистр.
func New(items domain.ItemRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "inventory-ledger")
	}
	return &Service{items: items, logger: logger}
}

// Availability возвращает доступное количество товара.
func (s *Service) Availability(itemID int64) (int, error) {
	item, err := s.items.Get(itemID)
	if err != nil {
		return 0, err
	}
	return item.StockQty, nil
}

// Reserve атомарно уменьшает сток на qty и возвращает цену за единицу на
// момент резервирования. Конфликт версий не считается отказом: пока товар
// существует и стока хватает, попытка повторяется — каждый раунд CAS
// выигрывает ровно один конкурент, поэтому прогресс гарантирован.
func (s *Service) Reserve(itemID int64, qty int) (decimal.Decimal, error) {
	if qty <= 0 {
		return decimal.Zero, domain.ErrInvalidQuantity
	}

	delay := casBaseDelay
	for attempt := 1; ; attempt++ {
		item, err := s.items.Get(itemID)
		if err != nil {
			return decimal.Zero, err
		}

		if item.StockQty < qty {
			return decimal.Zero, &domain.InsufficientStockError{
				ItemID:    item.ID,
				ItemName:  item.Name,
				Requested: qty,
				Available: item.StockQty,
			}
		}

		item.StockQty -= qty
		item.UpdatedAt = time.Now().UTC()
		if _, err := s.items.Save(item); err != nil {
			if domain.IsVersionConflict(err) {
				s.logger.WithFields(log.Fields{
					"item_id": itemID,
					"attempt": attempt,
				}).Debug("reserve lost CAS round, retrying")
				time.Sleep(delay)
				if delay < casMaxDelay {
					delay *= 2
				}
				continue
			}
			return decimal.Zero, err
		}

		return item.Price, nil
	}
}

// Release возвращает qty единиц в сток. Используется только как
// компенсация, когда более поздний шаг той же транзакции провалился.
func (s *Service) Release(itemID int64, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	delay := casBaseDelay
	for attempt := 1; ; attempt++ {
		item, err := s.items.Get(itemID)
		if err != nil {
			return err
		}

		item.StockQty += qty
		item.UpdatedAt = time.Now().UTC()
		if _, err := s.items.Save(item); err != nil {
			if domain.IsVersionConflict(err) {
				s.logger.WithFields(log.Fields{
					"item_id": itemID,
					"attempt": attempt,
				}).Debug("release lost CAS round, retrying")
				time.Sleep(delay)
				if delay < casMaxDelay {
					delay *= 2
				}
				continue
			}
			return err
		}

		return nil
	}
}

var _ domain.InventoryLedger = (*Service)(nil)
