package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const billColumns = `id, items, subtotal, tax, gst_applied, total, paid, change, payment_method, cashier_id, created_at`

// PGRepository stores bills in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL backed repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanBill(row pgx.Row) (Bill, error) {
	var (
		b     Bill
		items []byte
	)
	if err := row.Scan(&b.ID, &items, &b.Subtotal, &b.Tax, &b.GSTApplied, &b.Total, &b.Paid, &b.Change, &b.PaymentMethod, &b.CashierID, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, ErrNotFound
		}
		return Bill{}, err
	}
	if err := json.Unmarshal(items, &b.Items); err != nil {
		return Bill{}, fmt.Errorf("ledger: decode items: %w", err)
	}
	return b, nil
}

func collectBills(rows pgx.Rows) ([]Bill, error) {
	defer rows.Close()
	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Append inserts a bill.
func (r *PGRepository) Append(ctx context.Context, b Bill) error {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO bills (`+billColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, items, b.Subtotal, b.Tax, b.GSTApplied, b.Total, b.Paid, b.Change, string(b.PaymentMethod), b.CashierID, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("ledger: append: %w", err)
	}
	return nil
}

// List returns bills oldest first. With a limit, the newest bills are kept.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE 1=1`
	args := []any{}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND created_at < $` + strconv.Itoa(len(args))
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query = `SELECT ` + billColumns + ` FROM (` + query + ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)) + `) newest`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	return collectBills(rows)
}

// Get fetches a bill by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Bill, error) {
	return scanBill(r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
}

// Recent returns the newest n bills.
func (r *PGRepository) Recent(ctx context.Context, n int) ([]Bill, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+billColumns+` FROM bills ORDER BY created_at DESC, id DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("ledger: recent: %w", err)
	}
	return collectBills(rows)
}

// Upsert writes the bill by id.
func (r *PGRepository) Upsert(ctx context.Context, b Bill) error {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO bills (`+billColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET items = EXCLUDED.items, subtotal = EXCLUDED.subtotal, tax = EXCLUDED.tax,
gst_applied = EXCLUDED.gst_applied, total = EXCLUDED.total, paid = EXCLUDED.paid, change = EXCLUDED.change,
payment_method = EXCLUDED.payment_method, cashier_id = EXCLUDED.cashier_id, created_at = EXCLUDED.created_at`,
		b.ID, items, b.Subtotal, b.Tax, b.GSTApplied, b.Total, b.Paid, b.Change, string(b.PaymentMethod), b.CashierID, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("ledger: upsert: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
