// Package catalog реализует CRUD-сервисы справочников магазина: товары,
// клиенты и учётные записи. Сервисы тонкие: валидация входа, генерация
// кодов и делегирование репозиториям; сток товаров мутируется только через
// складской регистр.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// Число попыток пересоздать сущность при коллизии автогенерированного кода.
const maxCodeAttempts = 3

// ItemUpdate — частичное обновление товара: nil-поля не трогаются.
// Сток в обновление не входит, им владеет складской регистр.
type ItemUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
}

// ItemService управляет каталогом товаров.
type ItemService struct {
	items  domain.ItemRepository
	ledger domain.InventoryLedger
	logger *log.Entry
}

// NewItemService создаёт сервис каталога товаров.
func NewItemService(items domain.ItemRepository, ledger domain.InventoryLedger, logger *log.Entry) *ItemService {
	if logger == nil {
		logger = log.WithField("component", "catalog-items")
	}
	return &ItemService{items: items, ledger: ledger, logger: logger}
}

// Create добавляет товар в каталог. Пустой код заменяется автогенерированным
// ITEM<millis>-<суффикс>; цена и сток по умолчанию нулевые.
func (s *ItemService) Create(item domain.Item) (domain.Item, error) {
	if errs := item.Validate(); len(errs) > 0 {
		return domain.Item{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, errs[0])
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	generated := item.Code == ""
	for attempt := 1; ; attempt++ {
		if generated {
			item.Code = generateCode("ITEM")
		}

		created, err := s.items.Create(item)
		if err == nil {
			s.logger.WithFields(log.Fields{
				"item_id": created.ID,
				"code":    created.Code,
			}).Info("item created")
			return created, nil
		}
		if generated && domain.IsDuplicateKey(err) && attempt < maxCodeAttempts {
			continue
		}
		return domain.Item{}, err
	}
}

// Get возвращает товар по идентификатору.
func (s *ItemService) Get(id int64) (domain.Item, error) {
	return s.items.Get(id)
}

// GetByCode возвращает товар по уникальному коду.
func (s *ItemService) GetByCode(code string) (domain.Item, error) {
	return s.items.GetByCode(code)
}

// List возвращает все товары каталога.
func (s *ItemService) List() ([]domain.Item, error) {
	return s.items.List()
}

// ListByCategory возвращает товары заданной категории.
func (s *ItemService) ListByCategory(category string) ([]domain.Item, error) {
	return s.items.ListByCategory(category)
}

// SearchByName ищет товары по подстроке имени без учёта регистра.
func (s *ItemService) SearchByName(name string) ([]domain.Item, error) {
	return s.items.SearchByName(name)
}

// Update применяет частичное обновление к товару. Конфликт версий при
// параллельном резерве повторяется: обновление описательных полей не
// должно проигрывать гонку продажам.
func (s *ItemService) Update(id int64, update ItemUpdate) (domain.Item, error) {
	if update.Price != nil && update.Price.IsNegative() {
		return domain.Item{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, domain.ErrLinePriceInvalid)
	}

	for attempt := 1; ; attempt++ {
		item, err := s.items.Get(id)
		if err != nil {
			return domain.Item{}, err
		}

		if update.Name != nil {
			item.Name = *update.Name
		}
		if update.Description != nil {
			item.Description = *update.Description
		}
		if update.Category != nil {
			item.Category = *update.Category
		}
		if update.Price != nil {
			item.Price = *update.Price
		}
		item.UpdatedAt = time.Now().UTC()

		saved, err := s.items.Save(item)
		if err != nil {
			if domain.IsVersionConflict(err) && attempt < maxCodeAttempts {
				continue
			}
			return domain.Item{}, err
		}
		return saved, nil
	}
}

// AdjustStock меняет сток на delta через складской регистр: пополнение —
// Release, списание — Reserve. Списание ниже нуля отклоняется регистром.
func (s *ItemService) AdjustStock(id int64, delta int) (domain.Item, error) {
	switch {
	case delta > 0:
		if err := s.ledger.Release(id, delta); err != nil {
			return domain.Item{}, err
		}
	case delta < 0:
		if _, err := s.ledger.Reserve(id, -delta); err != nil {
			return domain.Item{}, err
		}
	default:
		return domain.Item{}, fmt.Errorf("%w: stock delta must be non-zero", domain.ErrInvalidArgument)
	}

	s.logger.WithFields(log.Fields{
		"item_id": id,
		"delta":   delta,
	}).Info("stock adjusted")

	return s.items.Get(id)
}

// Delete удаляет товар из каталога. Существующие счета хранят собственные
// снимки цены, поэтому удаление их не портит.
func (s *ItemService) Delete(id int64) error {
	return s.items.Delete(id)
}

// generateCode выдаёт код вида <prefix><millis>-<суффикс>.
func generateCode(prefix string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s%d-%s", prefix, time.Now().UnixMilli(), strings.ToUpper(suffix))
}
