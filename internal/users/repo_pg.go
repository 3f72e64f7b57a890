package users

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
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
)

const userColumns = `id, name, email, password_hash, role, status, created_at, updated_at`

// PGRepository stores users in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role, status string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Role = rbac.Role(role)
	u.Status = Status(status)
	return u, nil
}

// List returns users ordered by name.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := []any{}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+term+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR email ILIKE $` + n + `)`
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		query += ` AND role = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY name ASC, email ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get fetches a user by id.
func (r *PGRepository) Get(ctx context.Context, id string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByEmail fetches a user by normalised email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email)))
}

// Create inserts a user.
func (r *PGRepository) Create(ctx context.Context, u User) (User, error) {
	created, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (id, name, email, password_hash, role, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING `+userColumns,
		u.ID, u.Name, NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), string(u.Status), u.CreatedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailInUse
		}
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	return created, nil
}

// Update writes the mutable fields of u.
func (r *PGRepository) Update(ctx context.Context, u User) (User, error) {
	updated, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET name = $2, password_hash = $3, role = $4, status = $5, updated_at = $6
WHERE id = $1 RETURNING `+userColumns,
		u.ID, u.Name, u.PasswordHash, string(u.Role), string(u.Status), time.Now().UTC()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("users: update: %w", err)
	}
	return updated, err
}

// Delete removes a user. Sessions cascade.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert writes u as-is, used by restore and import.
func (r *PGRepository) Upsert(ctx context.Context, u User) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, name, email, password_hash, role, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
role = EXCLUDED.role, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		u.ID, u.Name, NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), string(u.Status), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("users: upsert: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
