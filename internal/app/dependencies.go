package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/pahanaedu/bookshop/internal/domain"
	"github.com/pahanaedu/bookshop/internal/storage/memory"
	"github.com/pahanaedu/bookshop/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения. Store равен nil при
// in-memory конфигурации.
type Dependencies struct {
	Bills       domain.BillRepository
	Customers   domain.CustomerRepository
	Items       domain.ItemRepository
	Users       domain.UserRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository
	Store       *postgres.Store
	Logger      *log.Entry
}

// NewDependencies собирает хранилища: PostgreSQL при заданном DSN
// (с применением миграций), иначе in-memory для локальной разработки.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN is not set, using in-memory storage")
		return &Dependencies{
			Bills:       memory.NewBillRepository(),
			Customers:   memory.NewCustomerRepository(),
			Items:       memory.NewItemRepository(),
			Users:       memory.NewUserRepository(),
			Outbox:      memory.NewOutboxRepository(),
			Timeline:    memory.NewTimelineRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
			Logger:      logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("postgres storage initialized, schema is up to date")

	return &Dependencies{
		Bills:       postgres.NewBillRepository(store),
		Customers:   postgres.NewCustomerRepository(store),
		Items:       postgres.NewItemRepository(store),
		Users:       postgres.NewUserRepository(store),
		Outbox:      postgres.NewOutboxRepository(store),
		Timeline:    postgres.NewTimelineRepository(store),
		Idempotency: postgres.NewIdempotencyRepository(store),
		Store:       store,
		Logger:      logger,
	}, nil
}

// Close освобождает подключение к базе, если оно было открыто.
func (d *Dependencies) Close() {
	if d == nil || d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}
