package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCustomerNotFound возвращается, если клиент не найден в репозитории.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrItemNotFound возвращается, если товар не найден в репозитории.
	ErrItemNotFound = errors.New("item not found")
	// ErrBillNotFound возвращается, если счёт не найден в репозитории.
	ErrBillNotFound = errors.New("bill not found")
	// ErrUserNotFound возвращается, если пользователь не найден в репозитории.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidQuantity — запрошенное количество меньше либо равно нулю.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidStatus — статус вне множества {PENDING, PAID, CANCELLED}.
	ErrInvalidStatus = errors.New("invalid bill status")
	// ErrInvalidArgument — некорректные входные данные (роль, формат поля и т.п.).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateKey — нарушение уникальности ключа (код товара, номер счёта и т.п.).
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrVersionConflict сигнализирует о конфликте версий при optimistic locking.
	ErrVersionConflict = errors.New("version conflict")
	// ErrPersistence — не удалось выполнить durable-запись в хранилище.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidCredentials — логин или пароль не подошли.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled — учётная запись заблокирована.
	ErrUserDisabled = errors.New("user is disabled")

	// Ошибка отсутствующего идентификатора клиента в счёте.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одной позиции в счёте.
	ErrLinesRequired = errors.New("bill must contain at least one line")
	// Ошибка отрицательной суммы счёта.
	ErrAmountNegative = errors.New("total_amount must be non-negative")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrLinePriceInvalid = errors.New("line unit price must be non-negative")
	// Ошибка расхождения totalPrice позиции с unitPrice*quantity.
	ErrLineTotalMismatch = errors.New("line total does not equal unit price times quantity")
	// Ошибка несоответствия суммы счёта и сумм позиций.
	ErrAmountMismatch = errors.New("bill amount does not match lines sum")
	// Ошибка отрицательного стока.
	ErrStockNegative = errors.New("stock quantity must be non-negative")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже занят другим запросом.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrIdempotencyNotFound — запись по ключу отсутствует.
	ErrIdempotencyNotFound = errors.New("idempotency record not found")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError описывает нехватку стока по конкретному товару.
// Несёт идентификатор и имя товара, чтобы вызывающая сторона могла назвать
// виновную позицию в ответе.
type InsufficientStockError struct {
	ItemID    int64
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.ItemName != "" {
		return fmt.Sprintf("insufficient stock for item %q (id=%d): requested %d, available %d",
			e.ItemName, e.ItemID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for item id=%d: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой стока.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// IsNotFound объединяет все ошибки отсутствия сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrBillNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsDuplicateKey проверяет, является ли ошибка нарушением уникальности.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
