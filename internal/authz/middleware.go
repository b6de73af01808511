package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taskforge-app/taskforge/internal/shared"
)

// DenialSink receives structured denial events for audit logging. The
// request path never blocks on it; implementations are expected to hand
// off asynchronously.
type DenialSink interface {
	RecordDenial(ctx context.Context, actor Principal, perm Permission, reason DenialReason)
}

// Middleware wires authorization enforcement for HTTP handlers. Denials
// are logged and forwarded to the sink with their internal reason, while
// the response body is always the same generic forbidden message.
type Middleware struct {
	Logger *slog.Logger
	Sink   DenialSink
}

// Require ensures the current principal holds perm. It evaluates the
// possession gate only; handlers that act on an existing resource fetch
// it first and call Authorize with its descriptor in the service layer.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
				return
			}
			decision := Authorize(principal, perm, nil)
			if decision.Allow {
				next.ServeHTTP(w, r)
				return
			}
			m.reportDenial(r.Context(), principal, perm, decision.Reason, r.URL.Path)
			shared.RespondError(w, http.StatusForbidden, shared.ErrForbidden)
		})
	}
}

// ReportDenial publishes a denial decided outside the middleware, e.g. by
// a service-layer resource check.
func (m Middleware) ReportDenial(ctx context.Context, actor Principal, perm Permission, reason DenialReason) {
	m.reportDenial(ctx, actor, perm, reason, "")
}

func (m Middleware) reportDenial(ctx context.Context, actor Principal, perm Permission, reason DenialReason, path string) {
	if m.Logger != nil {
		attrs := []any{
			slog.String("actor", actor.ID),
			slog.String("role", string(actor.Role)),
			slog.String("permission", string(perm)),
			slog.String("reason", string(reason)),
		}
		if path != "" {
			attrs = append(attrs, slog.String("path", path))
		}
		m.Logger.Warn("authorization denied", attrs...)
	}
	if m.Sink != nil {
		m.Sink.RecordDenial(ctx, actor, perm, reason)
	}
}
