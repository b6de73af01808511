package users

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

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers user routes. Role and membership mutation is not
// gated here: the service runs the management overlay, which has its own
// rules outside the permission table.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.UserRead))
		r.Get("/", h.listUsers)
		r.Get("/{userID}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.UserCreate))
		r.Post("/", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.UserUpdate))
		r.Patch("/{userID}", h.updateUser)
	})
	r.Put("/{userID}/role", h.changeRole)
	r.Delete("/{userID}/membership", h.removeMember)
	r.Delete("/{userID}", h.deleteUser)
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=OWNER ADMIN VIEWER"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	IsActive *bool   `json:"is_active"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=OWNER ADMIN VIEWER"`
}

type userResponse struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	list, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.respondServiceError(w, err, "list users")
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, user := range list {
		out = append(out, toUserResponse(user))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	user, err := h.service.Get(r.Context(), principal, chi.URLParam(r, "userID"))
	if err != nil {
		h.respondServiceError(w, err, "get user")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	var req createUserRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	user, err := h.service.Create(r.Context(), principal, CreateInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     authz.Role(req.Role),
	})
	if err != nil {
		h.respondServiceError(w, err, "create user")
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	var req updateUserRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	user, err := h.service.Update(r.Context(), principal, chi.URLParam(r, "userID"), UpdateInput{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.respondServiceError(w, err, "update user")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	var req changeRoleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	user, err := h.service.ChangeRole(r.Context(), principal, chi.URLParam(r, "userID"), authz.Role(req.Role))
	if err != nil {
		h.respondServiceError(w, err, "change role")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	if err := h.service.Remove(r.Context(), principal, chi.URLParam(r, "userID")); err != nil {
		h.respondServiceError(w, err, "remove member")
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "userID")); err != nil {
		h.respondServiceError(w, err, "delete user")
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		shared.RespondError(w, http.StatusForbidden, shared.ErrForbidden)
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, shared.ErrNotFound)
	case errors.Is(err, shared.ErrEmailTaken):
		shared.RespondError(w, http.StatusConflict, shared.ErrEmailTaken)
	case errors.Is(err, ErrUnknownRole):
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "unknown role"})
	default:
		h.logger.Error(op, slog.Any("error", err))
		shared.RespondJSON(w, http.StatusInternalServerError, shared.ErrorBody{Error: "internal error"})
	}
}

func toUserResponse(user User) userResponse {
	return userResponse{
		ID:        user.ID,
		OrgID:     user.OrgID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
