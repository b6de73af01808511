package auth

import (
	"time"

	"github.com/taskforge-app/taskforge/internal/authz"
)

// User represents a user account as the login flow sees it. Management
// of user records lives in the users module; this shape only carries
// what credential checks and token issuance need.
type User struct {
	ID           string
	OrgID        string
	Email        string
	PasswordHash string
	Role         authz.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
