package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/taskforge-app/taskforge/internal/audit"
	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/shared"
)

// ErrUnknownRole indicates a role outside the closed set in a request.
// This is a client input error at the boundary, unlike an unknown role
// inside the engine, which panics.
var ErrUnknownRole = errors.New("users: unknown role")

// CreateInput carries the fields for a new user account.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	Role     authz.Role
}

// UpdateInput carries partial profile updates; nil fields are unchanged.
type UpdateInput struct {
	Name     *string
	IsActive *bool
}

// Service handles user management. Plain reads and profile updates go
// through the engine's Authorize; anything touching another user's role
// or membership goes through the management overlay instead.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// List returns all users of the principal's organization.
func (s *Service) List(ctx context.Context, principal authz.Principal) ([]User, error) {
	if err := s.check(ctx, principal, authz.UserRead, nil); err != nil {
		return nil, err
	}
	return s.repo.ListByOrg(ctx, principal.OrgID)
}

// Get fetches one user in the principal's organization.
func (s *Service) Get(ctx context.Context, principal authz.Principal, id string) (User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	desc := user.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.UserRead, &desc); err != nil {
		return User{}, err
	}
	return user, nil
}

// Create registers a user in the principal's organization. The initial
// role grant runs through the management overlay: user:create lets the
// actor grant any role at creation time, per the grant rule.
func (s *Service) Create(ctx context.Context, principal authz.Principal, input CreateInput) (User, error) {
	if !authz.ValidRole(input.Role) {
		return User{}, ErrUnknownRole
	}
	if err := s.check(ctx, principal, authz.UserCreate, nil); err != nil {
		return User{}, err
	}

	id := uuid.NewString()
	target := authz.ManagementTarget{ID: id, Role: input.Role, OrgID: principal.OrgID}
	if err := s.checkManagement(ctx, principal, target, authz.ManageGrantRole); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	user := User{
		ID:        id,
		OrgID:     principal.OrgID,
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Name:      normalizeName(input.Name),
		Role:      input.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, user, string(hash)); err != nil {
		return User{}, err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionUserCreated, "user", user.ID,
		map[string]any{"role": string(user.Role)})
	return user, nil
}

// Update mutates a user's profile fields. Role changes are not accepted
// here; they go through ChangeRole and its overlay. An is_active change
// runs the overlay too: deactivation is how members leave the
// organization, so it is membership mutation, not a profile edit.
func (s *Service) Update(ctx context.Context, principal authz.Principal, id string, input UpdateInput) (User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	desc := user.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.UserUpdate, &desc); err != nil {
		return User{}, err
	}
	if input.Name != nil {
		user.Name = normalizeName(*input.Name)
	}
	if input.IsActive != nil && *input.IsActive != user.IsActive {
		target := authz.ManagementTarget{ID: user.ID, Role: user.Role, OrgID: user.OrgID}
		if err := s.checkManagement(ctx, principal, target, authz.ManageRemoveMember); err != nil {
			return User{}, err
		}
		user.IsActive = *input.IsActive
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionUserUpdated, "user", user.ID, nil)
	return user, nil
}

// ChangeRole moves a user to another role under the management overlay.
func (s *Service) ChangeRole(ctx context.Context, principal authz.Principal, id string, role authz.Role) (User, error) {
	if !authz.ValidRole(role) {
		return User{}, ErrUnknownRole
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	target := authz.ManagementTarget{ID: user.ID, Role: user.Role, OrgID: user.OrgID}
	if err := s.checkManagement(ctx, principal, target, authz.ManageChangeRole); err != nil {
		return User{}, err
	}
	previous := user.Role
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionRoleChanged, "user", user.ID,
		map[string]any{"from": string(previous), "to": string(role)})
	return user, nil
}

// Remove deactivates a member's account, ending their access to the
// organization, under the management overlay.
func (s *Service) Remove(ctx context.Context, principal authz.Principal, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	target := authz.ManagementTarget{ID: user.ID, Role: user.Role, OrgID: user.OrgID}
	if err := s.checkManagement(ctx, principal, target, authz.ManageRemoveMember); err != nil {
		return err
	}
	user.IsActive = false
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionUserRemoved, "user", user.ID, nil)
	return nil
}

// Delete erases a user account. Requires the user:delete permission and
// passes the management overlay (never self, same org, outranked).
func (s *Service) Delete(ctx context.Context, principal authz.Principal, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	desc := user.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.UserDelete, &desc); err != nil {
		return err
	}
	target := authz.ManagementTarget{ID: user.ID, Role: user.Role, OrgID: user.OrgID}
	if err := s.checkManagement(ctx, principal, target, authz.ManageDeleteUser); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionUserDeleted, "user", user.ID, nil)
	return nil
}

func (s *Service) check(ctx context.Context, principal authz.Principal, perm authz.Permission, resource *authz.ResourceDescriptor) error {
	decision := authz.Authorize(principal, perm, resource)
	if decision.Allow {
		return nil
	}
	s.recorder.RecordDenial(ctx, principal, perm, decision.Reason)
	return shared.ErrForbidden
}

func (s *Service) checkManagement(ctx context.Context, principal authz.Principal, target authz.ManagementTarget, op authz.ManagementOp) error {
	decision := authz.AuthorizeManagement(principal, target, op)
	if decision.Allow {
		return nil
	}
	s.recorder.RecordDenial(ctx, principal, authz.Permission("user:manage:"+string(op)), decision.Reason)
	return shared.ErrForbidden
}

// normalizeName canonicalizes user-supplied display names so lookups and
// comparisons are stable across composed/decomposed Unicode input.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
