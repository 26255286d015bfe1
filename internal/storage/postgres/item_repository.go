package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pahanaedu/bookshop/internal/domain"
)

const opTimeout = 5 * time.Second

const itemColumns = `id, code, name, description, price, stock_qty, category, version, created_at, updated_at`

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository создаёт PostgreSQL-реализацию ItemRepository.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepository{db: store.DB()}
}

func (r *itemRepository) Create(item domain.Item) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO items (code, name, description, price, stock_qty, category, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,0,$7,$8)
		RETURNING id
	`,
		item.Code, item.Name, item.Description, item.Price,
		item.StockQty, item.Category, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, domain.ErrDuplicateKey
		}
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}

	item.Version = 0
	return item, nil
}

func (r *itemRepository) Get(id int64) (domain.Item, error) {
	return r.getWhere(`id = $1`, id)
}

func (r *itemRepository) GetByCode(code string) (domain.Item, error) {
	return r.getWhere(`code = $1`, code)
}

func (r *itemRepository) getWhere(cond string, arg any) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE `+cond, arg)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("select item: %w", err)
	}
	return item, nil
}

func (r *itemRepository) List() ([]domain.Item, error) {
	return r.listWhere(`TRUE`, nil)
}

func (r *itemRepository) ListByCategory(category string) ([]domain.Item, error) {
	return r.listWhere(`category = $1`, []any{category})
}

func (r *itemRepository) SearchByName(name string) ([]domain.Item, error) {
	return r.listWhere(`name ILIKE '%' || $1 || '%'`, []any{name})
}

func (r *itemRepository) listWhere(cond string, args []any) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE `+cond+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item rows: %w", err)
	}

	return items, nil
}

// Save применяет обновление с проверкой версии: проигравший CAS получает
// ErrVersionConflict и решает сам, повторять ли попытку.
func (r *itemRepository) Save(item domain.Item) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET code = $1,
		    name = $2,
		    description = $3,
		    price = $4,
		    stock_qty = $5,
		    category = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE id = $8
		  AND version = $9
	`,
		item.Code, item.Name, item.Description, item.Price,
		item.StockQty, item.Category, item.UpdatedAt,
		item.ID, item.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, domain.ErrDuplicateKey
		}
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, item.ID)
		if err != nil {
			return domain.Item{}, err
		}
		if !exists {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, domain.ErrVersionConflict
	}

	item.Version++
	return item, nil
}

func (r *itemRepository) Delete(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *itemRepository) exists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM items WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check item exists: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(
		&item.ID, &item.Code, &item.Name, &item.Description,
		&item.Price, &item.StockQty, &item.Category,
		&item.Version, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.ItemRepository = (*itemRepository)(nil)
