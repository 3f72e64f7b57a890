package shop

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores the profile in the single-row shop_settings table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL backed repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Load implements Repository.
func (r *PGRepository) Load(ctx context.Context) (Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `SELECT name, address, phone, email, gst_number, updated_at FROM shop_settings WHERE id = 1`).
		Scan(&p.Name, &p.Address, &p.Phone, &p.Email, &p.GSTNumber, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotConfigured
	}
	return p, err
}

// Store implements Repository.
func (r *PGRepository) Store(ctx context.Context, p Profile) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO shop_settings (id, name, address, phone, email, gst_number, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone,
email = EXCLUDED.email, gst_number = EXCLUDED.gst_number, updated_at = EXCLUDED.updated_at`,
		p.Name, p.Address, p.Phone, p.Email, p.GSTNumber, p.UpdatedAt)
	return err
}
