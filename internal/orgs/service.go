package orgs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/taskforge-app/taskforge/internal/audit"
	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/shared"
)

// Service exposes operations on the principal's own organization. There
// is no cross-organization surface here at all; every call resolves the
// org from the principal, never from the request.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// Get returns the principal's organization.
func (s *Service) Get(ctx context.Context, principal authz.Principal) (Organization, error) {
	org, err := s.repo.GetByID(ctx, principal.OrgID)
	if err != nil {
		return Organization{}, err
	}
	desc := org.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.OrgRead, &desc); err != nil {
		return Organization{}, err
	}
	return org, nil
}

// Rename changes the organization name. Only holders of org:manage may
// do this, which by the permission table means the OWNER alone.
func (s *Service) Rename(ctx context.Context, principal authz.Principal, name string) (Organization, error) {
	org, err := s.repo.GetByID(ctx, principal.OrgID)
	if err != nil {
		return Organization{}, err
	}
	desc := org.AuthzDescriptor()
	if err := s.check(ctx, principal, authz.OrgManage, &desc); err != nil {
		return Organization{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, errors.New("orgs: name required")
	}
	org.Name = name
	org.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, org); err != nil {
		return Organization{}, err
	}
	s.recorder.RecordAction(ctx, principal, audit.ActionOrgUpdated, "organization", org.ID,
		map[string]any{"name": name})
	return org, nil
}

func (s *Service) check(ctx context.Context, principal authz.Principal, perm authz.Permission, resource *authz.ResourceDescriptor) error {
	decision := authz.Authorize(principal, perm, resource)
	if decision.Allow {
		return nil
	}
	s.recorder.RecordDenial(ctx, principal, perm, decision.Reason)
	return shared.ErrForbidden
}
