package domain

import "time"

// Customer описывает клиента книжного магазина.
type Customer struct {
	ID int64
	// AccountNumber — уникальный номер аккаунта, задаётся извне или
	// генерируется при создании.
	AccountNumber string
	Name          string
	Address       string
	Telephone     string
	Email         string
	// UserID — необязательная ссылка на учётную запись (0 — не привязан).
	// Клиент ссылается на пользователя, но не владеет им: удаление клиента
	// пользователя не затрагивает.
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
