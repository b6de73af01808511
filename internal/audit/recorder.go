package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge-app/taskforge/internal/authz"
)

// Writer delivers an event to durable storage. The production writer
// enqueues an asynq task so the request path never waits on the audit
// table; a direct repository write serves the worker and tests.
type Writer interface {
	Write(ctx context.Context, event Event) error
}

// Recorder builds audit events from authorization outcomes and domain
// actions. It implements authz.DenialSink.
type Recorder struct {
	writer  Writer
	logger  *slog.Logger
	observe func(reason string)
}

// NewRecorder constructs a Recorder.
func NewRecorder(writer Writer, logger *slog.Logger) *Recorder {
	return &Recorder{writer: writer, logger: logger}
}

// WithDenialObserver attaches a callback invoked on every denial, used
// to feed the denial counter.
func (r *Recorder) WithDenialObserver(fn func(reason string)) *Recorder {
	r.observe = fn
	return r
}

// RecordDenial captures a structured denial for compliance logging. A
// failed write never fails the request; it is logged and dropped.
func (r *Recorder) RecordDenial(ctx context.Context, actor authz.Principal, perm authz.Permission, reason authz.DenialReason) {
	if r == nil {
		return
	}
	if r.observe != nil {
		r.observe(string(reason))
	}
	r.submit(ctx, Event{
		ID:        uuid.NewString(),
		OrgID:     actor.OrgID,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		Action:    ActionDenied,
		Entity:    "permission",
		EntityID:  string(perm),
		Reason:    string(reason),
		At:        time.Now().UTC(),
	})
}

// RecordAction captures a successful mutating operation.
func (r *Recorder) RecordAction(ctx context.Context, actor authz.Principal, action, entity, entityID string, meta map[string]any) {
	if r == nil {
		return
	}
	r.submit(ctx, Event{
		ID:        uuid.NewString(),
		OrgID:     actor.OrgID,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Meta:      meta,
		At:        time.Now().UTC(),
	})
}

func (r *Recorder) submit(ctx context.Context, event Event) {
	if err := r.writer.Write(ctx, event); err != nil && r.logger != nil {
		r.logger.Warn("audit write failed", slog.String("action", event.Action), slog.Any("error", err))
	}
}

var _ authz.DenialSink = (*Recorder)(nil)

// RepositoryWriter writes events straight to the repository. Used by the
// worker and in tests.
type RepositoryWriter struct {
	Repo Repository
}

// Write implements Writer.
func (w RepositoryWriter) Write(ctx context.Context, event Event) error {
	return w.Repo.Insert(ctx, event)
}
