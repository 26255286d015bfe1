package catalog

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pahanaedu/bookshop/internal/domain"
)

// CustomerUpdate — частичное обновление клиента: nil-поля не трогаются.
type CustomerUpdate struct {
	Name      *string
	Address   *string
	Telephone *string
	Email     *string
	UserID    *int64
}

// CustomerService управляет справочником клиентов.
type CustomerService struct {
	customers domain.CustomerRepository
	logger    *log.Entry
}

// NewCustomerService создаёт сервис клиентов.
func NewCustomerService(customers domain.CustomerRepository, logger *log.Entry) *CustomerService {
	if logger == nil {
		logger = log.WithField("component", "catalog-customers")
	}
	return &CustomerService{customers: customers, logger: logger}
}

// Create регистрирует клиента. Пустой номер аккаунта заменяется
// автогенерированным ACC<millis>-<суффикс>; заданный извне номер при
// коллизии возвращает ErrDuplicateKey без повторов.
func (s *CustomerService) Create(customer domain.Customer) (domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return domain.Customer{}, domain.ErrInvalidArgument
	}

	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	generated := customer.AccountNumber == ""
	for attempt := 1; ; attempt++ {
		if generated {
			customer.AccountNumber = generateCode("ACC")
		}

		created, err := s.customers.Create(customer)
		if err == nil {
			s.logger.WithFields(log.Fields{
				"customer_id": created.ID,
				"account":     created.AccountNumber,
			}).Info("customer created")
			return created, nil
		}
		if generated && domain.IsDuplicateKey(err) && attempt < maxCodeAttempts {
			continue
		}
		return domain.Customer{}, err
	}
}

// Get возвращает клиента по идентификатору.
func (s *CustomerService) Get(id int64) (domain.Customer, error) {
	return s.customers.Get(id)
}

// GetByAccountNumber возвращает клиента по номеру аккаунта.
func (s *CustomerService) GetByAccountNumber(accountNumber string) (domain.Customer, error) {
	return s.customers.GetByAccountNumber(accountNumber)
}

// GetByUserID возвращает клиента, привязанного к учётной записи.
func (s *CustomerService) GetByUserID(userID int64) (domain.Customer, error) {
	return s.customers.GetByUserID(userID)
}

// List возвращает всех клиентов.
func (s *CustomerService) List() ([]domain.Customer, error) {
	return s.customers.List()
}

// Update применяет частичное обновление. Номер аккаунта неизменяем.
func (s *CustomerService) Update(id int64, update CustomerUpdate) (domain.Customer, error) {
	customer, err := s.customers.Get(id)
	if err != nil {
		return domain.Customer{}, err
	}

	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return domain.Customer{}, domain.ErrInvalidArgument
		}
		customer.Name = *update.Name
	}
	if update.Address != nil {
		customer.Address = *update.Address
	}
	if update.Telephone != nil {
		customer.Telephone = *update.Telephone
	}
	if update.Email != nil {
		customer.Email = *update.Email
	}
	if update.UserID != nil {
		customer.UserID = *update.UserID
	}
	customer.UpdatedAt = time.Now().UTC()

	return s.customers.Save(customer)
}

// Delete удаляет клиента. Его счета остаются: история продаж переживает
// справочник.
func (s *CustomerService) Delete(id int64) error {
	return s.customers.Delete(id)
}
