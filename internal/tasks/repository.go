package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge-app/taskforge/internal/shared"
)

// RepositoryPort defines data access methods for tasks.
type RepositoryPort interface {
	Create(ctx context.Context, task Task) error
	GetByID(ctx context.Context, id string) (Task, error)
	ListByOrg(ctx context.Context, orgID string, offset, limit int) ([]Task, int, error)
	ListForUser(ctx context.Context, orgID, userID string, offset, limit int) ([]Task, int, error)
	Update(ctx context.Context, task Task) error
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

const taskColumns = `id, org_id, title, description, status, owner_id, COALESCE(assignee_id, ''), due_at, created_at, updated_at`

// Create inserts a new task.
func (r *Repository) Create(ctx context.Context, task Task) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (id, org_id, title, description, status, owner_id, assignee_id, due_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)`,
		task.ID, task.OrgID, task.Title, task.Description, task.Status,
		task.OwnerID, task.AssigneeID, task.DueAt, task.CreatedAt, task.UpdatedAt)
	return err
}

// GetByID fetches a task by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, shared.ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

// ListByOrg returns a page of every task in the organization.
func (r *Repository) ListByOrg(ctx context.Context, orgID string, offset, limit int) ([]Task, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE org_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE org_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`,
		orgID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list, err := collectTasks(rows)
	return list, total, err
}

// ListForUser returns the page of tasks the user owns or is assigned to.
func (r *Repository) ListForUser(ctx context.Context, orgID, userID string, offset, limit int) ([]Task, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE org_id = $1 AND (owner_id = $2 OR assignee_id = $2)`,
		orgID, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE org_id = $1 AND (owner_id = $2 OR assignee_id = $2)
		 ORDER BY created_at DESC OFFSET $3 LIMIT $4`,
		orgID, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list, err := collectTasks(rows)
	return list, total, err
}

// Update persists mutable task fields.
func (r *Repository) Update(ctx context.Context, task Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $2, description = $3, status = $4, assignee_id = NULLIF($5, ''), due_at = $6, updated_at = $7
		 WHERE id = $1`,
		task.ID, task.Title, task.Description, task.Status, task.AssigneeID, task.DueAt, task.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListOverdue returns unfinished tasks whose due date has passed. Used
// by the background digest job, so it is deliberately not part of the
// service port.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE status <> $1 AND due_at IS NOT NULL AND due_at < $2
		 ORDER BY due_at ASC LIMIT $3`,
		StatusDone, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// Delete removes a task.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var task Task
	err := row.Scan(&task.ID, &task.OrgID, &task.Title, &task.Description, &task.Status,
		&task.OwnerID, &task.AssigneeID, &task.DueAt, &task.CreatedAt, &task.UpdatedAt)
	return task, err
}

func collectTasks(rows pgx.Rows) ([]Task, error) {
	var list []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, task)
	}
	return list, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
