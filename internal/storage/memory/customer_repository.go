package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// customerRepositoryInMemory — простая in-memory реализация CustomerRepository.
type customerRepositoryInMemory struct {
	mu        sync.RWMutex
	customers map[int64]domain.Customer
	nextID    int64
}

// NewCustomerRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{customers: make(map[int64]domain.Customer)}
}

// Create сохраняет нового клиента; insert-if-absent по номеру аккаунта.
func (r *customerRepositoryInMemory) Create(customer domain.Customer) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.customers {
		if existing.AccountNumber == customer.AccountNumber {
			return domain.Customer{}, domain.ErrDuplicateKey
		}
	}

	r.nextID++
	customer.ID = r.nextID
	r.customers[customer.ID] = customer
	return customer, nil
}

// Get возвращает клиента или ErrCustomerNotFound.
func (r *customerRepositoryInMemory) Get(id int64) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// GetByAccountNumber возвращает клиента по уникальному номеру аккаунта.
func (r *customerRepositoryInMemory) GetByAccountNumber(accountNumber string) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, customer := range r.customers {
		if customer.AccountNumber == accountNumber {
			return customer, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

// GetByUserID возвращает клиента, привязанного к учётной записи.
func (r *customerRepositoryInMemory) GetByUserID(userID int64) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, customer := range r.customers {
		if customer.UserID != 0 && customer.UserID == userID {
			return customer, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

// List возвращает всех клиентов, отсортированных по идентификатору.
func (r *customerRepositoryInMemory) List() ([]domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Customer, 0, len(r.customers))
	for _, customer := range r.customers {
		result = append(result, customer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Save перезаписывает клиента, сохраняя уникальность номера аккаунта.
func (r *customerRepositoryInMemory) Save(customer domain.Customer) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[customer.ID]; !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	for id, existing := range r.customers {
		if id != customer.ID && existing.AccountNumber == customer.AccountNumber {
			return domain.Customer{}, domain.ErrDuplicateKey
		}
	}

	customer.UpdatedAt = time.Now().UTC()
	r.customers[customer.ID] = customer
	return customer, nil
}

// Delete удаляет клиента или возвращает ErrCustomerNotFound.
func (r *customerRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	delete(r.customers, id)
	return nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
