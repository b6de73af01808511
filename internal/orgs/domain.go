package orgs

import (
	"time"

	"github.com/taskforge-app/taskforge/internal/authz"
)

// Organization is a tenant. Every user, task, and audit event belongs to
// exactly one.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthzDescriptor reduces the organization to the shape the engine
// evaluates. An organization has no individual owner; only the tenant
// boundary applies.
func (o Organization) AuthzDescriptor() authz.ResourceDescriptor {
	return authz.ResourceDescriptor{OrgID: o.ID}
}
