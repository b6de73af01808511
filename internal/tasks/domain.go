package tasks

import (
	"time"

	"github.com/taskforge-app/taskforge/internal/authz"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work inside one organization. OwnerID is the
// creating user; AssigneeID may be empty.
type Task struct {
	ID          string
	OrgID       string
	Title       string
	Description string
	Status      Status
	OwnerID     string
	AssigneeID  string
	DueAt       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuthzDescriptor reduces the task to its ownership/organization shape
// for authorization evaluation.
func (t Task) AuthzDescriptor() authz.ResourceDescriptor {
	return authz.ResourceDescriptor{
		OwnerID:      t.OwnerID,
		OrgID:        t.OrgID,
		AssignedToID: t.AssigneeID,
	}
}
