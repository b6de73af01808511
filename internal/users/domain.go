package users

import (
	"time"

	"github.com/taskforge-app/taskforge/internal/authz"
)

// User represents a user account for management.
type User struct {
	ID        string
	OrgID     string
	Email     string
	Name      string
	Role      authz.Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthzDescriptor reduces the user record to its ownership/organization
// shape. A user record "belongs" to the user it describes.
func (u User) AuthzDescriptor() authz.ResourceDescriptor {
	return authz.ResourceDescriptor{OwnerID: u.ID, OrgID: u.OrgID}
}
