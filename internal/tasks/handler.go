package tasks

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

// Handler manages task endpoints.
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

// MountRoutes registers task routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.TaskCreate))
		r.Post("/", h.createTask)
	})
	r.Get("/", h.listTasks)
	r.Get("/{taskID}", h.getTask)
	r.Patch("/{taskID}", h.updateTask)
	r.Put("/{taskID}/assignee", h.assignTask)
	r.Delete("/{taskID}", h.deleteTask)
}

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=4000"`
	AssigneeID  string     `json:"assignee_id" validate:"omitempty,uuid4"`
	DueAt       *time.Time `json:"due_at"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=4000"`
	Status      *string    `json:"status" validate:"omitempty,oneof=open in_progress done"`
	DueAt       *time.Time `json:"due_at"`
}

type assignTaskRequest struct {
	AssigneeID string `json:"assignee_id" validate:"omitempty,uuid4"`
}

type taskResponse struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	OwnerID     string     `json:"owner_id"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type taskListResponse struct {
	Tasks      []taskResponse    `json:"tasks"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	var req createTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	task, err := h.service.Create(r.Context(), principal, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueAt:       req.DueAt,
	})
	if err != nil {
		h.respondServiceError(w, err, "create task")
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toTaskResponse(task))
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	page, perPage := shared.PageParams(r)
	result, err := h.service.List(r.Context(), principal, page, perPage)
	if err != nil {
		h.respondServiceError(w, err, "list tasks")
		return
	}
	resp := taskListResponse{Tasks: make([]taskResponse, 0, len(result.Tasks)), Pagination: result.Pagination}
	for _, task := range result.Tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(task))
	}
	shared.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	task, err := h.service.Get(r.Context(), principal, chi.URLParam(r, "taskID"))
	if err != nil {
		h.respondServiceError(w, err, "get task")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	var req updateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	input := UpdateInput{Title: req.Title, Description: req.Description, DueAt: req.DueAt}
	if req.Status != nil {
		status := Status(*req.Status)
		input.Status = &status
	}
	task, err := h.service.Update(r.Context(), principal, chi.URLParam(r, "taskID"), input)
	if err != nil {
		h.respondServiceError(w, err, "update task")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *Handler) assignTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	var req assignTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid request body"})
		return
	}
	task, err := h.service.Assign(r.Context(), principal, chi.URLParam(r, "taskID"), req.AssigneeID)
	if err != nil {
		h.respondServiceError(w, err, "assign task")
		return
	}
	shared.RespondJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		shared.RespondJSON(w, http.StatusUnauthorized, shared.ErrorBody{Error: "authentication required"})
		return
	}
	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "taskID")); err != nil {
		h.respondServiceError(w, err, "delete task")
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
	case errors.Is(err, ErrInvalidStatus):
		shared.RespondJSON(w, http.StatusBadRequest, shared.ErrorBody{Error: "invalid status"})
	default:
		h.logger.Error(op, slog.Any("error", err))
		shared.RespondJSON(w, http.StatusInternalServerError, shared.ErrorBody{Error: "internal error"})
	}
}

func toTaskResponse(task Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		OrgID:       task.OrgID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		OwnerID:     task.OwnerID,
		AssigneeID:  task.AssigneeID,
		DueAt:       task.DueAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}
