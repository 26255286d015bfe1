package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// billRepositoryInMemory — простая in-memory реализация BillRepository.
// Шапка счёта и позиции хранятся вместе: счёт владеет позициями, они не
// переживают его удаление.
type billRepositoryInMemory struct {
	mu         sync.RWMutex
	bills      map[int64]domain.Bill
	nextID     int64
	nextLineID int64
}

// NewBillRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewBillRepository() domain.BillRepository {
	return &billRepositoryInMemory{bills: make(map[int64]domain.Bill)}
}

// Create сохраняет шапку счёта и его позиции как единое целое.
// Insert-if-absent по номеру счёта: коллизия — ErrDuplicateKey.
func (r *billRepositoryInMemory) Create(bill domain.Bill) (domain.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bills {
		if existing.BillNumber == bill.BillNumber {
			return domain.Bill{}, domain.ErrDuplicateKey
		}
	}

	r.nextID++
	bill.ID = r.nextID
	bill.Version = 0

	lines := make([]domain.BillLine, len(bill.Lines))
	copy(lines, bill.Lines)
	for i := range lines {
		r.nextLineID++
		lines[i].ID = r.nextLineID
		lines[i].BillID = bill.ID
	}
	bill.Lines = lines

	r.bills[bill.ID] = bill
	return copyBill(bill), nil
}

// Get возвращает счёт с позициями или ErrBillNotFound.
func (r *billRepositoryInMemory) Get(id int64) (domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bill, ok := r.bills[id]
	if !ok {
		return domain.Bill{}, domain.ErrBillNotFound
	}
	return copyBill(bill), nil
}

// GetByNumber возвращает счёт по уникальному номеру.
func (r *billRepositoryInMemory) GetByNumber(billNumber string) (domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, bill := range r.bills {
		if bill.BillNumber == billNumber {
			return copyBill(bill), nil
		}
	}
	return domain.Bill{}, domain.ErrBillNotFound
}

// List возвращает все счета, новые первыми.
func (r *billRepositoryInMemory) List() ([]domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(domain.Bill) bool { return true }), nil
}

// ListByCustomer возвращает счета клиента, новые первыми.
func (r *billRepositoryInMemory) ListByCustomer(customerID int64) ([]domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(b domain.Bill) bool { return b.CustomerID == customerID }), nil
}

// ListByStatus возвращает счета в заданном статусе, новые первыми.
func (r *billRepositoryInMemory) ListByStatus(status domain.BillStatus) ([]domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(b domain.Bill) bool { return b.Status == status }), nil
}

// Save перезаписывает шапку счёта, проверяя версию (optimistic locking).
// Позиции не пересохраняются: после создания агрегат меняет только статус.
func (r *billRepositoryInMemory) Save(bill domain.Bill) (domain.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.bills[bill.ID]
	if !ok {
		return domain.Bill{}, domain.ErrBillNotFound
	}
	if current.Version != bill.Version {
		return domain.Bill{}, domain.ErrVersionConflict
	}

	current.Status = bill.Status
	current.UpdatedAt = time.Now().UTC()
	current.Version++
	r.bills[bill.ID] = current
	return copyBill(current), nil
}

// Delete удаляет счёт вместе с позициями. Сток не восстанавливается.
func (r *billRepositoryInMemory) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bills[id]; !ok {
		return domain.ErrBillNotFound
	}
	delete(r.bills, id)
	return nil
}

func (r *billRepositoryInMemory) collect(match func(domain.Bill) bool) []domain.Bill {
	result := make([]domain.Bill, 0, len(r.bills))
	for _, bill := range r.bills {
		if match(bill) {
			result = append(result, copyBill(bill))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].BillDate.Equal(result[j].BillDate) {
			return result[i].BillDate.After(result[j].BillDate)
		}
		return result[i].ID > result[j].ID
	})

	return result
}

// copyBill копирует счёт вместе со слайсом позиций, чтобы избежать
// непредсказуемых мутаций извне.
func copyBill(bill domain.Bill) domain.Bill {
	lines := make([]domain.BillLine, len(bill.Lines))
	copy(lines, bill.Lines)
	bill.Lines = lines
	return bill
}

var _ domain.BillRepository = (*billRepositoryInMemory)(nil)
