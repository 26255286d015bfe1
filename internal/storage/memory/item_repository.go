package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// itemRepositoryInMemory — простая in-memory реализация ItemRepository.
type itemRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[int64]domain.Item
	nextID int64
}

// NewItemRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewItemRepository() domain.ItemRepository {
	return &itemRepositoryInMemory{items: make(map[int64]domain.Item)}
}

// Create сохраняет новый товар. Проверка уникальности кода и вставка
// выполняются под одной блокировкой — атомарный insert-if-absent.
func (r *itemRepositoryInMemory) Create(item domain.Item) (domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Code == item.Code {
			return domain.Item{}, domain.ErrDuplicateKey
		}
	}

	r.nextID++
	item.ID = r.nextID
	item.Version = 0
	r.items[item.ID] = item
	return item, nil
}

// Get возвращает товар или ErrItemNotFound, если его нет.
func (r *itemRepositoryInMemory) Get(id int64) (domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

// GetByCode возвращает товар по уникальному коду.
func (r *itemRepositoryInMemory) GetByCode(code string) (domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Code == code {
			return item, nil
		}
	}
	return domain.Item{}, domain.ErrItemNotFound
}

// List возвращает все товары, отсортированные по идентификатору.
func (r *itemRepositoryInMemory) List() ([]domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Item, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, item)
	}
	sortItems(result)
	return result, nil
}

// ListByCategory возвращает товары заданной категории.
func (r *itemRepositoryInMemory) ListByCategory(category string) ([]domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Item, 0)
	for _, item := range r.items {
		if item.Category == category {
			result = append(result, item)
		}
	}
	sortItems(result)
	return result, nil
}

// SearchByName возвращает товары, имя которых содержит подстроку без учёта регистра.
func (r *itemRepositoryInMemory) SearchByName(name string) ([]domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(name)
	result := make([]domain.Item, 0)
	for _, item := range r.items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			result = append(result, item)
		}
	}
	sortItems(result)
	return result, nil
}

// Save перезаписывает товар, проверяя версию (optimistic locking).
func (r *itemRepositoryInMemory) Save(item domain.Item) (domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[item.ID]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	if current.Version != item.Version {
		return domain.Item{}, domain.ErrVersionConflict
	}
	for id, existing := range r.items {
		if id != item.ID && existing.Code == item.Code {
			return domain.Item{}, domain.ErrDuplicateKey
		}
	}

	item.Version++
	item.UpdatedAt = time.Now().UTC()
	r.items[item.ID] = item
	return item, nil
}

// Delete удаляет товар или возвращает ErrItemNotFound.
func (r *itemRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

func sortItems(items []domain.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

var _ domain.ItemRepository = (*itemRepositoryInMemory)(nil)
