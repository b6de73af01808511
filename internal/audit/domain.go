package audit

import "time"

// Event is a single audit trail record. Denials carry a Reason; ordinary
// actions leave it empty.
type Event struct {
	ID        string         `json:"id"`
	OrgID     string         `json:"org_id"`
	ActorID   string         `json:"actor_id"`
	ActorRole string         `json:"actor_role"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	At        time.Time      `json:"at"`
}

// Well-known audit actions.
const (
	ActionDenied       = "authz.denied"
	ActionTaskCreated  = "task.created"
	ActionTaskUpdated  = "task.updated"
	ActionTaskAssigned = "task.assigned"
	ActionTaskDeleted  = "task.deleted"
	ActionUserCreated  = "user.created"
	ActionUserUpdated  = "user.updated"
	ActionUserDeleted  = "user.deleted"
	ActionRoleChanged  = "user.role_changed"
	ActionUserRemoved  = "user.removed"
	ActionOrgUpdated   = "org.updated"
)
