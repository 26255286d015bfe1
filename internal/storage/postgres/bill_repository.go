package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pahanaedu/bookshop/internal/domain"
)

const billColumns = `id, bill_number, customer_id, total_amount, status, created_by, version, bill_date, updated_at`

type billRepository struct {
	db *sql.DB
}

// NewBillRepository создаёт PostgreSQL-реализацию BillRepository.
func NewBillRepository(store *Store) domain.BillRepository {
	return &billRepository{db: store.DB()}
}

// Create пишет шапку счёта и все позиции в одной транзакции: либо счёт
// появляется целиком, либо не появляется вовсе.
func (r *billRepository) Create(bill domain.Bill) (domain.Bill, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if bill.BillDate.IsZero() {
		bill.BillDate = time.Now().UTC()
	}
	if bill.UpdatedAt.IsZero() {
		bill.UpdatedAt = bill.BillDate
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO bills (bill_number, customer_id, total_amount, status, created_by, version, bill_date, updated_at)
		VALUES ($1,$2,$3,$4,$5,0,$6,$7)
		RETURNING id
	`,
		bill.BillNumber, bill.CustomerID, bill.TotalAmount, string(bill.Status),
		bill.CreatedByID, bill.BillDate, bill.UpdatedAt,
	).Scan(&bill.ID)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateKey
			return domain.Bill{}, err
		}
		return domain.Bill{}, fmt.Errorf("insert bill: %w", err)
	}
	bill.Version = 0

	for i := range bill.Lines {
		line := &bill.Lines[i]
		line.BillID = bill.ID
		if line.CreatedAt.IsZero() {
			line.CreatedAt = bill.BillDate
		}
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO bill_lines (bill_id, item_id, qty, unit_price, total_price, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`,
			line.BillID, line.ItemID, line.Qty,
			line.UnitPrice, line.TotalPrice, line.CreatedAt,
		).Scan(&line.ID); err != nil {
			return domain.Bill{}, fmt.Errorf("insert bill line: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return domain.Bill{}, fmt.Errorf("commit create bill: %w", err)
	}

	return bill, nil
}

func (r *billRepository) Get(id int64) (domain.Bill, error) {
	return r.getWhere(`id = $1`, id)
}

func (r *billRepository) GetByNumber(billNumber string) (domain.Bill, error) {
	return r.getWhere(`bill_number = $1`, billNumber)
}

func (r *billRepository) getWhere(cond string, arg any) (domain.Bill, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE `+cond, arg)
	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bill{}, domain.ErrBillNotFound
		}
		return domain.Bill{}, fmt.Errorf("select bill: %w", err)
	}

	lines, err := r.loadLines(ctx, bill.ID)
	if err != nil {
		return domain.Bill{}, err
	}
	bill.Lines = lines

	return bill, nil
}

func (r *billRepository) List() ([]domain.Bill, error) {
	return r.listWhere(`TRUE`, nil)
}

func (r *billRepository) ListByCustomer(customerID int64) ([]domain.Bill, error) {
	return r.listWhere(`customer_id = $1`, []any{customerID})
}

func (r *billRepository) ListByStatus(status domain.BillStatus) ([]domain.Bill, error) {
	return r.listWhere(`status = $1`, []any{string(status)})
}

func (r *billRepository) listWhere(cond string, args []any) ([]domain.Bill, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE `+cond+`
		ORDER BY bill_date DESC, id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill row: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bill rows: %w", err)
	}

	for i := range bills {
		lines, err := r.loadLines(ctx, bills[i].ID)
		if err != nil {
			return nil, err
		}
		bills[i].Lines = lines
	}

	return bills, nil
}

// Save обновляет только шапку: после создания агрегат меняет статус, но не
// позиции.
func (r *billRepository) Save(bill domain.Bill) (domain.Bill, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if bill.UpdatedAt.IsZero() {
		bill.UpdatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE bills
		SET status = $1,
		    version = version + 1,
		    updated_at = $2
		WHERE id = $3
		  AND version = $4
	`, string(bill.Status), bill.UpdatedAt, bill.ID, bill.Version)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("update bill: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Bill{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, bill.ID)
		if err != nil {
			return domain.Bill{}, err
		}
		if !exists {
			return domain.Bill{}, domain.ErrBillNotFound
		}
		return domain.Bill{}, domain.ErrVersionConflict
	}

	bill.Version++
	return bill, nil
}

// Delete удаляет счёт; позиции уходят по ON DELETE CASCADE. Сток товаров
// не восстанавливается.
func (r *billRepository) Delete(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrBillNotFound
	}
	return nil
}

func (r *billRepository) loadLines(ctx context.Context, billID int64) ([]domain.BillLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, bill_id, item_id, qty, unit_price, total_price, created_at
		FROM bill_lines
		WHERE bill_id = $1
		ORDER BY id
	`, billID)
	if err != nil {
		return nil, fmt.Errorf("load bill lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.BillLine, 0)
	for rows.Next() {
		var line domain.BillLine
		if err := rows.Scan(
			&line.ID, &line.BillID, &line.ItemID, &line.Qty,
			&line.UnitPrice, &line.TotalPrice, &line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bill line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bill lines: %w", err)
	}

	return lines, nil
}

func (r *billRepository) exists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM bills WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check bill exists: %w", err)
}

func scanBill(row rowScanner) (domain.Bill, error) {
	var (
		bill   domain.Bill
		status string
	)
	err := row.Scan(
		&bill.ID, &bill.BillNumber, &bill.CustomerID, &bill.TotalAmount,
		&status, &bill.CreatedByID, &bill.Version, &bill.BillDate, &bill.UpdatedAt,
	)
	if err != nil {
		return domain.Bill{}, err
	}
	bill.Status = domain.BillStatus(status)
	return bill, nil
}

var _ domain.BillRepository = (*billRepository)(nil)
