package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

const productColumns = `id, name, sku, category, price, quantity, barcode, created_at, updated_at`

// PGRepository stores products in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL backed repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.Price, &p.Quantity, &p.Barcode, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List returns products matching filter ordered by name.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+term+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR sku ILIKE $` + n + `)`
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	switch filter.Stock {
	case StockOut:
		query += ` AND quantity <= 0`
	case StockLow:
		query += fmt.Sprintf(` AND quantity > 0 AND quantity <= %d`, LowStockThreshold)
	case StockOK:
		query += fmt.Sprintf(` AND quantity > %d`, LowStockThreshold)
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return collectProducts(rows)
}

// Get fetches a product by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// GetMany fetches the products that still exist among ids.
func (r *PGRepository) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog: get many: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// FindByBarcode looks a product up by its barcode.
func (r *PGRepository) FindByBarcode(ctx context.Context, barcode string) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1 LIMIT 1`, barcode))
}

// Categories lists distinct non-empty categories.
func (r *PGRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("catalog: categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a product.
func (r *PGRepository) Create(ctx context.Context, p Product) (Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products (id, name, sku, category, price, quantity, barcode, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING `+productColumns,
		p.ID, p.Name, p.SKU, p.Category, p.Price, p.Quantity, p.Barcode, p.CreatedAt)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create: %w", err)
	}
	return created, nil
}

// Update applies patch inside a repeatable-read transaction.
func (r *PGRepository) Update(ctx context.Context, id string, patch Patch) (Product, Product, error) {
	var before, after Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		before, err = scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		next := patch.Apply(before)
		after, err = scanProduct(tx.QueryRow(ctx, `UPDATE products SET name = $2, sku = $3, category = $4, price = $5, quantity = $6, barcode = $7, updated_at = $8
WHERE id = $1 RETURNING `+productColumns,
			id, next.Name, next.SKU, next.Category, next.Price, next.Quantity, next.Barcode, time.Now().UTC()))
		return err
	})
	if err != nil {
		return Product{}, Product{}, err
	}
	return before, after, nil
}

// Delete removes a product.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementIfAvailable subtracts qty with a single guarded UPDATE.
func (r *PGRepository) DecrementIfAvailable(ctx context.Context, id string, qty int) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products SET quantity = quantity - $2, updated_at = NOW()
WHERE id = $1 AND quantity >= $2 RETURNING `+productColumns, id, qty))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Product{}, getErr
		}
		return Product{}, ErrInsufficientStock
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: decrement: %w", err)
	}
	return p, nil
}

// SetQuantity overwrites the quantity on hand.
func (r *PGRepository) SetQuantity(ctx context.Context, id string, qty int) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products SET quantity = $2, updated_at = NOW() WHERE id = $1 RETURNING `+productColumns, id, qty))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Product{}, fmt.Errorf("catalog: set quantity: %w", err)
	}
	return p, err
}

// Upsert inserts or replaces a product by id.
func (r *PGRepository) Upsert(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, name, sku, category, price, quantity, barcode, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, sku = EXCLUDED.sku, category = EXCLUDED.category,
price = EXCLUDED.price, quantity = EXCLUDED.quantity, barcode = EXCLUDED.barcode, updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.SKU, p.Category, p.Price, p.Quantity, p.Barcode, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
