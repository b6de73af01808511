package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/shared"
)

// Handler exposes the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.AuditRead))
		r.Get("/", h.listEvents)
	})
}

type timelineResponse struct {
	Events     []Event           `json:"events"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	page, perPage := shared.PageParams(r)
	result, err := h.service.Timeline(r.Context(), principal, page, perPage)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		shared.RespondJSON(w, http.StatusInternalServerError, shared.ErrorBody{Error: "internal error"})
		return
	}
	if result.Events == nil {
		result.Events = []Event{}
	}
	shared.RespondJSON(w, http.StatusOK, timelineResponse{Events: result.Events, Pagination: result.Pagination})
}
