package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/taskforge-app/taskforge/internal/audit"
	"github.com/taskforge-app/taskforge/internal/auth"
	"github.com/taskforge-app/taskforge/internal/observability"
	"github.com/taskforge-app/taskforge/internal/orgs"
	"github.com/taskforge-app/taskforge/internal/tasks"
	"github.com/taskforge-app/taskforge/internal/users"
	"github.com/taskforge-app/taskforge/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Authenticator auth.Authenticator
	AuthHandler   *auth.Handler
	TasksHandler  *tasks.Handler
	UsersHandler  *users.Handler
	OrgsHandler   *orgs.Handler
	AuditHandler  *audit.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	loginLimit := 10
	if params.Config != nil && params.Config.LoginRateLimit > 0 {
		loginLimit = params.Config.LoginRateLimit
	}

	// Credential endpoints get a tighter per-IP limit than the global one.
	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.Limit(loginLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		params.AuthHandler.MountRoutes(r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.Authenticator.Middleware)
		r.Route("/tasks", params.TasksHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/org", params.OrgsHandler.MountRoutes)
		r.Route("/audit", params.AuditHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
