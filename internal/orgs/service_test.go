package orgs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge-app/taskforge/internal/audit"
	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/shared"
	_ "github.com/taskforge-app/taskforge/testing"
)

type memoryOrgRepo struct {
	orgs map[string]Organization
}

func newMemoryOrgRepo(orgs ...Organization) *memoryOrgRepo {
	repo := &memoryOrgRepo{orgs: make(map[string]Organization)}
	for _, org := range orgs {
		repo.orgs[org.ID] = org
	}
	return repo
}

func (r *memoryOrgRepo) GetByID(_ context.Context, id string) (Organization, error) {
	org, ok := r.orgs[id]
	if !ok {
		return Organization{}, shared.ErrNotFound
	}
	return org, nil
}

func (r *memoryOrgRepo) Update(_ context.Context, org Organization) error {
	if _, ok := r.orgs[org.ID]; !ok {
		return shared.ErrNotFound
	}
	r.orgs[org.ID] = org
	return nil
}

type memoryOrgAudit struct {
	events []audit.Event
}

func (w *memoryOrgAudit) Write(_ context.Context, event audit.Event) error {
	w.events = append(w.events, event)
	return nil
}

func (w *memoryOrgAudit) lastDenialReason() string {
	for i := len(w.events) - 1; i >= 0; i-- {
		if w.events[i].Action == audit.ActionDenied {
			return w.events[i].Reason
		}
	}
	return ""
}

func newOrgService(t *testing.T, repo RepositoryPort) (*Service, *memoryOrgAudit) {
	t.Helper()
	writer := &memoryOrgAudit{}
	recorder := audit.NewRecorder(writer, slog.Default())
	return NewService(repo, recorder), writer
}

func TestGetOrganization(t *testing.T) {
	repo := newMemoryOrgRepo(Organization{ID: "org-1", Name: "Acme", CreatedAt: time.Now().UTC()})
	service, _ := newOrgService(t, repo)

	viewer := authz.Principal{ID: "u-1", Role: authz.RoleViewer, OrgID: "org-1"}
	org, err := service.Get(context.Background(), viewer)
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
}

func TestRenameRequiresOwner(t *testing.T) {
	repo := newMemoryOrgRepo(Organization{ID: "org-1", Name: "Acme"})
	service, writer := newOrgService(t, repo)

	admin := authz.Principal{ID: "u-2", Role: authz.RoleAdmin, OrgID: "org-1"}
	_, err := service.Rename(context.Background(), admin, "Acme Corp")
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, string(authz.ReasonMissingPermission), writer.lastDenialReason())

	owner := authz.Principal{ID: "u-3", Role: authz.RoleOwner, OrgID: "org-1"}
	org, err := service.Rename(context.Background(), owner, "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", org.Name)
	assert.Equal(t, "Acme Corp", repo.orgs["org-1"].Name)
}

func TestOwnerBoundToOwnOrganization(t *testing.T) {
	repo := newMemoryOrgRepo(
		Organization{ID: "org-1", Name: "Acme"},
		Organization{ID: "org-2", Name: "Globex"},
	)
	service, _ := newOrgService(t, repo)

	// An owner of org-2 calling through the service still resolves their
	// own organization, never another tenant's.
	owner := authz.Principal{ID: "u-9", Role: authz.RoleOwner, OrgID: "org-2"}
	org, err := service.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "org-2", org.ID)

	_, err = service.Rename(context.Background(), owner, "Globex Intl")
	require.NoError(t, err)
	assert.Equal(t, "Acme", repo.orgs["org-1"].Name)
}
