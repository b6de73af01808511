package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge-app/taskforge/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListByOrg(ctx context.Context, orgID string) ([]User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, user User, passwordHash string) error
	Update(ctx context.Context, user User) error
	Delete(ctx context.Context, id string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, org_id, email, name, role, is_active, created_at, updated_at`

// ListByOrg returns all users of one organization.
func (r *Repository) ListByOrg(ctx context.Context, orgID string) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE org_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.OrgID, &user.Email, &user.Name, &user.Role,
			&user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, user)
	}
	return list, rows.Err()
}

// GetByID fetches a user by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.OrgID, &user.Email, &user.Name, &user.Role,
			&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// Create inserts a new user account.
func (r *Repository) Create(ctx context.Context, user User, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, org_id, email, name, password_hash, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.OrgID, user.Email, user.Name, passwordHash, user.Role,
		user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrEmailTaken
		}
		return err
	}
	return nil
}

// Update persists mutable user fields including the role.
func (r *Repository) Update(ctx context.Context, user User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, role = $3, is_active = $4, updated_at = $5 WHERE id = $1`,
		user.ID, user.Name, user.Role, user.IsActive, user.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a user account.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
