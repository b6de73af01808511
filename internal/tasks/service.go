package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge-app/taskforge/internal/audit"
	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/shared"
)

// ErrInvalidStatus indicates an unknown lifecycle state in an update.
var ErrInvalidStatus = errors.New("tasks: invalid status")

// CreateInput carries the fields for a new task.
type CreateInput struct {
	Title       string
	Description string
	AssigneeID  string
	DueAt       *time.Time
}

// UpdateInput carries partial updates; nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *Status
	DueAt       *time.Time
}

// ListResult wraps a task page with paging metadata.
type ListResult struct {
	Tasks      []Task
	Pagination shared.Pagination
}

// Service applies the authorization engine's decisions to task
// operations. All resource checks happen here, after the row has been
// fetched and reduced to a descriptor; handlers only gate creation.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// Create makes a new task owned by the principal in their organization.
func (s *Service) Create(ctx context.Context, principal authz.Principal, input CreateInput) (Task, error) {
	if err := s.check(ctx, principal, authz.TaskCreate, nil); err != nil {
		return Task{}, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Task{}, errors.New("tasks: title required")
	}
	now := time.Now().UTC()
	task := Task{
		ID:          uuid.NewString(),
		OrgID:       principal.OrgID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      StatusOpen,
		OwnerID:     principal.ID,
		AssigneeID:  input.AssigneeID,
		DueAt:       input.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return Task{}, err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionTaskCreated, "task", task.ID, nil)
	return task, nil
}

// Get fetches a single task the principal may read.
func (s *Service) Get(ctx context.Context, principal authz.Principal, id string) (Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	desc := task.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.TaskReadOwn, &desc); err != nil {
		return Task{}, err
	}
	return task, nil
}

// List returns the subset of organization tasks visible to the
// principal. The query itself is narrowed by the engine's scope answer,
// and the fetched page is re-filtered through the engine as a second
// line of defense.
func (s *Service) List(ctx context.Context, principal authz.Principal, page, perPage int) (ListResult, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * perPage

	var (
		list  []Task
		total int
		err   error
	)
	switch authz.ScopeFor(principal, "task", "read") {
	case authz.ScopeAll:
		list, total, err = s.repo.ListByOrg(ctx, principal.OrgID, offset, perPage)
	case authz.ScopeOwn:
		list, total, err = s.repo.ListForUser(ctx, principal.OrgID, principal.ID, offset, perPage)
	default:
		return ListResult{Tasks: []Task{}, Pagination: shared.NewPagination(page, perPage, 0)}, nil
	}
	if err != nil {
		return ListResult{}, err
	}
	list = authz.FilterVisible(principal, authz.TaskReadOwn, list)
	return ListResult{Tasks: list, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// Update mutates a task the principal may update.
func (s *Service) Update(ctx context.Context, principal authz.Principal, id string, input UpdateInput) (Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	desc := task.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.TaskUpdateOwn, &desc); err != nil {
		return Task{}, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return Task{}, errors.New("tasks: title required")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !ValidStatus(*input.Status) {
			return Task{}, ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.DueAt != nil {
		task.DueAt = input.DueAt
	}
	task.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, task); err != nil {
		return Task{}, err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionTaskUpdated, "task", task.ID, nil)
	return task, nil
}

// Assign sets the task assignee. Assignment is an update-type operation;
// it follows the update permission, not a separate one.
func (s *Service) Assign(ctx context.Context, principal authz.Principal, id, assigneeID string) (Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	desc := task.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.TaskUpdateOwn, &desc); err != nil {
		return Task{}, err
	}
	task.AssigneeID = assigneeID
	task.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, task); err != nil {
		return Task{}, err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionTaskAssigned, "task", task.ID,
		map[string]any{"assignee_id": assigneeID})
	return task, nil
}

// Delete removes a task the principal may delete.
func (s *Service) Delete(ctx context.Context, principal authz.Principal, id string) error {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	desc := task.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.TaskDeleteOwn, &desc); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, task.ID); err != nil {
		return err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionTaskDeleted, "task", task.ID, nil)
	return nil
}

// check runs the engine and translates a denial into the one generic
// error callers may surface, recording the structured reason internally.
func (s *Service) check(ctx context.Context, principal authz.Principal, perm authz.Permission, resource *authz.ResourceDescriptor) error {
	decision := authz.Authorize(principal, perm, resource)
	if decision.Allow {
		return nil
	}
	s.recorder.RecordDenial(ctx, principal, perm, decision.Reason)
	return shared.ErrForbidden
}
