package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/taskforge-app/taskforge/internal/audit"
	jobmetrics "github.com/taskforge-app/taskforge/internal/jobs"
	"github.com/taskforge-app/taskforge/internal/tasks"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditRecord persists one audit event off the request path.
	TaskTypeAuditRecord = "audit:record"
	// TaskTypeOverdueDigest scans for tasks past their due date.
	TaskTypeOverdueDigest = "tasks:overdue_digest"
)

// NewAuditRecordTask constructs an Asynq task carrying one audit event.
func NewAuditRecordTask(event audit.Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditRecord, data), nil
}

// NewAuditRecordHandler returns the handler that writes queued audit
// events to the repository. A payload that cannot be decoded is dropped
// rather than retried forever.
func NewAuditRecordHandler(repo audit.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("audit.record")
		var event audit.Event
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			logger.Warn("audit record payload", slog.Any("error", err))
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		return tracker.End(repo.Insert(ctx, event))
	}
}

// NewOverdueDigestTask constructs the periodic digest task.
func NewOverdueDigestTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOverdueDigest, nil)
}

// overdueLister is the slice of the task repository the digest needs.
type overdueLister interface {
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]tasks.Task, error)
}

// NewOverdueDigestHandler returns the handler behind the digest cron.
// It logs one structured line per overdue task so operators can alert
// on the stream without another delivery channel.
func NewOverdueDigestHandler(repo overdueLister, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track("tasks.overdue_digest")
		overdue, err := repo.ListOverdue(ctx, time.Now().UTC(), 500)
		if err != nil {
			return tracker.End(err)
		}
		for _, task := range overdue {
			attrs := []any{
				slog.String("task_id", task.ID),
				slog.String("org_id", task.OrgID),
				slog.String("owner_id", task.OwnerID),
			}
			// The query excludes null due dates, but the lister
			// contract does not promise that.
			if task.DueAt != nil {
				attrs = append(attrs, slog.Time("due_at", *task.DueAt))
			}
			logger.Info("task overdue", attrs...)
		}
		logger.Info("overdue digest complete", slog.Int("count", len(overdue)))
		return tracker.End(nil)
	}
}
