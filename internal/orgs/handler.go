package orgs

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/shared"
)

// Handler manages organization endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers organization routes. Both endpoints operate on
// the caller's own organization.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.getOrg)
	r.Patch("/", h.renameOrg)
}

type renameOrgRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type orgResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) getOrg(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	org, err := h.service.Get(r.Context(), principal)
	if err != nil {
		h.respondServiceError(w, err, "get organization")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toOrgResponse(org))
}

func (h *Handler) renameOrg(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	var req renameOrgRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	org, err := h.service.Rename(r.Context(), principal, req.Name)
	if err != nil {
		h.respondServiceError(w, err, "rename organization")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toOrgResponse(org))
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		shared.RespondError(w, http.StatusForbidden, shared.ErrForbidden)
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, shared.ErrNotFound)
	default:
		h.logger.Error(op, slog.Any("error", err))
		shared.RespondJSON(w, http.StatusInternalServerError, shared.ErrorBody{Error: "internal error"})
	}
}

func toOrgResponse(org Organization) orgResponse {
	return orgResponse{
		ID:        org.ID,
		Name:      org.Name,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}
