package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Repository defines persistence for audit events.
type Repository interface {
	Insert(ctx context.Context, event Event) error
	ListByOrg(ctx context.Context, orgID string, offset, limit int) ([]Event, int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert persists an audit event.
func (r *PGRepository) Insert(ctx context.Context, event Event) error {
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_events (id, org_id, actor_id, actor_role, action, entity, entity_id, reason, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.OrgID, event.ActorID, event.ActorRole, event.Action,
		event.Entity, event.EntityID, event.Reason, meta, at)
	return err
}

// ListByOrg returns a page of events for one organization, newest first,
// along with the total count. Count and page run on separate pool
// connections in parallel.
func (r *PGRepository) ListByOrg(ctx context.Context, orgID string, offset, limit int) ([]Event, int, error) {
	var (
		total  int
		events []Event
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM audit_events WHERE org_id = $1`, orgID).Scan(&total)
	})
	g.Go(func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, org_id, actor_id, actor_role, action, entity, entity_id, reason, meta, occurred_at
			 FROM audit_events WHERE org_id = $1
			 ORDER BY occurred_at DESC
			 OFFSET $2 LIMIT $3`, orgID, offset, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var event Event
			var meta []byte
			if err := rows.Scan(&event.ID, &event.OrgID, &event.ActorID, &event.ActorRole,
				&event.Action, &event.Entity, &event.EntityID, &event.Reason, &meta, &event.At); err != nil {
				return err
			}
			if len(meta) > 0 {
				if err := json.Unmarshal(meta, &event.Meta); err != nil {
					return err
				}
			}
			events = append(events, event)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

var _ Repository = (*PGRepository)(nil)
