package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/models"
)

const uniqueViolation = "23505"

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, display_name, role, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage("query user", err)
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Create inserts a new user with a locally usable credential.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName string, role models.Role) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, display_name, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		email, passwordHash, displayName, string(role)))
	if err != nil && isUniqueViolation(err) {
		return nil, apperr.Conflict("email already registered")
	}
	return u, err
}

// CreateProvisioned inserts a user with an externally controlled id and no
// usable local credential.
func (r *Repository) CreateProvisioned(ctx context.Context, id uuid.UUID, email, displayName string, role models.Role) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, role)
		 VALUES ($1, $2, '', $3, $4)
		 RETURNING `+userColumns,
		id, email, displayName, string(role)))
	if err != nil && isUniqueViolation(err) {
		return nil, apperr.Conflict("user already exists")
	}
	return u, err
}

// UpdateRole overwrites a user's role and returns the updated record.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1
		 RETURNING `+userColumns,
		id, string(role)))
}

// List returns all users ordered by email.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, display_name, role, created_at FROM users ORDER BY email`)
	if err != nil {
		return nil, apperr.Storage("list users", err)
	}
	defer rows.Close()

	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.CreatedAt); err != nil {
			return nil, apperr.Storage("scan user", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list users", err)
	}
	return list, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
