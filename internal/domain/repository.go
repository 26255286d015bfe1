package domain

// ItemRepository описывает требования к хранилищу товаров.
type ItemRepository interface {
	// Create сохраняет новый товар атомарно с проверкой уникальности кода.
	// Возвращает ErrDuplicateKey, если код уже занят.
	Create(item Item) (Item, error)
	// Get возвращает товар по идентификатору или ErrItemNotFound.
	Get(id int64) (Item, error)
	// GetByCode возвращает товар по уникальному коду или ErrItemNotFound.
	GetByCode(code string) (Item, error)
	// List возвращает все товары, отсортированные по идентификатору.
	List() ([]Item, error)
	// ListByCategory возвращает товары заданной категории.
	ListByCategory(category string) ([]Item, error)
	// SearchByName возвращает товары, имя которых содержит подстроку
	// (без учёта регистра).
	SearchByName(name string) ([]Item, error)
	// Save применяет обновления к товару с учётом optimistic locking:
	// ErrVersionConflict при расхождении версий, ErrItemNotFound если
	// товара нет, ErrDuplicateKey при смене кода на занятый.
	Save(item Item) (Item, error)
	// Delete удаляет товар или возвращает ErrItemNotFound.
	Delete(id int64) error
}

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// Create сохраняет нового клиента атомарно с проверкой уникальности
	// номера аккаунта. Возвращает ErrDuplicateKey, если номер занят.
	Create(customer Customer) (Customer, error)
	// Get возвращает клиента по идентификатору или ErrCustomerNotFound.
	Get(id int64) (Customer, error)
	// GetByAccountNumber возвращает клиента по номеру аккаунта.
	GetByAccountNumber(accountNumber string) (Customer, error)
	// GetByUserID возвращает клиента, привязанного к учётной записи.
	GetByUserID(userID int64) (Customer, error)
	// List возвращает всех клиентов.
	List() ([]Customer, error)
	// Save применяет обновления к клиенту.
	Save(customer Customer) (Customer, error)
	// Delete удаляет клиента или возвращает ErrCustomerNotFound.
	Delete(id int64) error
}

// UserRepository описывает требования к хранилищу учётных записей.
type UserRepository interface {
	// Create сохраняет пользователя атомарно с проверкой уникальности
	// username. Возвращает ErrDuplicateKey, если имя занято.
	Create(user User) (User, error)
	// Get возвращает пользователя по идентификатору или ErrUserNotFound.
	Get(id int64) (User, error)
	// GetByUsername возвращает пользователя по имени или ErrUserNotFound.
	GetByUsername(username string) (User, error)
	// List возвращает всех пользователей.
	List() ([]User, error)
	// ListByRole возвращает пользователей с заданной ролью.
	ListByRole(role UserRole) ([]User, error)
	// Save применяет обновления к пользователю.
	Save(user User) (User, error)
	// Delete удаляет пользователя или возвращает ErrUserNotFound.
	Delete(id int64) error
}

// BillRepository описывает требования к хранилищу счетов.
//
// Счёт и его позиции — один агрегат: Create и Delete затрагивают строки
// позиций вместе с шапкой в одной транзакции.
type BillRepository interface {
	// Create сохраняет шапку счёта и все его позиции как единую
	// all-or-nothing запись. Возвращает ErrDuplicateKey при коллизии
	// номера счёта.
	Create(bill Bill) (Bill, error)
	// Get возвращает счёт с позициями или ErrBillNotFound.
	Get(id int64) (Bill, error)
	// GetByNumber возвращает счёт по уникальному номеру.
	GetByNumber(billNumber string) (Bill, error)
	// List возвращает все счета, новые первыми.
	List() ([]Bill, error)
	// ListByCustomer возвращает счета клиента, новые первыми.
	ListByCustomer(customerID int64) ([]Bill, error)
	// ListByStatus возвращает счета в заданном статусе.
	ListByStatus(status BillStatus) ([]Bill, error)
	// Save применяет обновления к шапке счёта (статус) с учётом
	// optimistic locking. Позиции не пересохраняются.
	Save(bill Bill) (Bill, error)
	// Delete удаляет счёт вместе с позициями. Сток товаров при этом
	// не восстанавливается.
	Delete(id int64) error
}
