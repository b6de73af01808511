package authz

import "fmt"

// Role is one of the fixed platform roles. Roles are a closed set; values
// outside it are rejected loudly because they indicate a bug upstream of
// the engine (for example a token that was verified but carries garbage).
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
)

// Permission is an atomic grant written as resource:action or
// resource:action:scope, where scope is "own" or "all".
type Permission string

// Principal describes the authenticated actor as reconstructed per request
// from a verified token. It is never persisted by this package.
type Principal struct {
	ID    string
	Role  Role
	OrgID string
}

// ResourceDescriptor is the minimal ownership/organization shape a domain
// object is reduced to before being evaluated. AssignedToID may be empty;
// it only matters for read access.
type ResourceDescriptor struct {
	OwnerID      string
	OrgID        string
	AssignedToID string
}

// AuthzDescriptor lets a descriptor stand in for itself in FilterVisible.
func (d ResourceDescriptor) AuthzDescriptor() ResourceDescriptor { return d }

// Resource is anything that can be reduced to a ResourceDescriptor.
type Resource interface {
	AuthzDescriptor() ResourceDescriptor
}

// DenialReason identifies which gate rejected a request. Reasons are for
// audit logging only and must never be echoed to the end user.
type DenialReason string

const (
	ReasonMissingPermission       DenialReason = "missing_permission"
	ReasonCrossOrganizationAccess DenialReason = "cross_organization_access"
	ReasonNotOwner                DenialReason = "not_owner"
	ReasonSelfTargetForbidden     DenialReason = "self_target_forbidden"
	ReasonInsufficientHierarchy   DenialReason = "insufficient_hierarchy"
)

// Decision is the outcome of an authorization check. Reason is set only
// when Allow is false.
type Decision struct {
	Allow  bool
	Reason DenialReason
}

func allowed() Decision { return Decision{Allow: true} }

func denied(reason DenialReason) Decision { return Decision{Reason: reason} }

// InvalidRoleError reports a role outside the closed set. It is raised as
// a panic: silently denying an unknown role could mask a deserialization
// bug in the authentication layer.
type InvalidRoleError struct {
	Role Role
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("authz: invalid role %q", string(e.Role))
}

// InvalidPermissionError reports a permission outside the closed set.
type InvalidPermissionError struct {
	Permission Permission
}

func (e *InvalidPermissionError) Error() string {
	return fmt.Sprintf("authz: invalid permission %q", string(e.Permission))
}

// ValidRole reports whether r belongs to the closed role set. Boundary
// layers use it to validate tokens before constructing a Principal.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleViewer:
		return true
	}
	return false
}
