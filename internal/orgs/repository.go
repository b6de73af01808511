package orgs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge-app/taskforge/internal/shared"
)

// RepositoryPort defines data access methods for organizations.
type RepositoryPort interface {
	GetByID(ctx context.Context, id string) (Organization, error)
	Update(ctx context.Context, org Organization) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID fetches an organization by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1`, id).
		Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, shared.ErrNotFound
		}
		return Organization{}, err
	}
	return org, nil
}

// Update persists mutable organization fields.
func (r *Repository) Update(ctx context.Context, org Organization) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET name = $2, updated_at = $3 WHERE id = $1`,
		org.ID, org.Name, org.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
