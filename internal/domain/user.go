package domain

import "time"

// UserRole описывает роль пользователя back-office.
type UserRole string

const (
	// UserRoleAdmin — администратор магазина.
	UserRoleAdmin UserRole = "ADMIN"
	// UserRoleCashier — кассир, оформляющий продажи.
	UserRoleCashier UserRole = "CASHIER"
)

// Valid проверяет, что роль относится к поддерживаемым значениям.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleCashier:
		return true
	default:
		return false
	}
}

// User описывает учётную запись back-office.
//
// PasswordHash хранит bcrypt-хэш; сырой пароль нигде не сохраняется и не
// сравнивается напрямую.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         UserRole
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
