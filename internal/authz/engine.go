package authz

// Authorize decides whether principal may perform perm against resource.
// Three gates are evaluated in order with short-circuit on the first
// failure: permission possession, organization scope, ownership
// resolution. Pass a nil resource for creation-type actions that have no
// pre-existing object; gate 1 alone governs those.
//
// Authorize is pure: no I/O, no clock, no shared mutable state. Identical
// inputs always yield identical decisions, and concurrent calls need no
// synchronization.
func Authorize(principal Principal, perm Permission, resource *ResourceDescriptor) Decision {
	granted := PermissionsFor(principal.Role)
	spec := specFor(perm)

	if _, ok := granted[perm]; !ok {
		return denied(ReasonMissingPermission)
	}
	if resource == nil {
		return allowed()
	}
	if scope := organizationGate(principal, *resource); !scope.Allow {
		return scope
	}
	if !spec.scoped() {
		return allowed()
	}
	return ownershipGate(principal, spec, granted, *resource)
}

// organizationGate enforces the absolute tenant boundary. There is no
// cross-organization bypass for any role.
func organizationGate(principal Principal, resource ResourceDescriptor) Decision {
	if resource.OrgID != principal.OrgID {
		return denied(ReasonCrossOrganizationAccess)
	}
	return allowed()
}

// ownershipGate resolves own-vs-all scoped permissions. Holding the :all
// variant grants the resource unconditionally; otherwise the principal
// must own it, or for read access be assigned to it.
func ownershipGate(principal Principal, spec permissionSpec, granted map[Permission]struct{}, resource ResourceDescriptor) Decision {
	if _, ok := granted[spec.allVariant()]; ok {
		return allowed()
	}
	if resource.OwnerID == principal.ID {
		return allowed()
	}
	if spec.action == "read" && resource.AssignedToID != "" && resource.AssignedToID == principal.ID {
		return allowed()
	}
	return denied(ReasonNotOwner)
}

// FilterVisible narrows a listing to the items principal may see under
// perm, applying the organization and ownership gates per item. Items
// failing a gate are silently excluded rather than causing an error.
func FilterVisible[T Resource](principal Principal, perm Permission, items []T) []T {
	spec := specFor(perm)
	granted := PermissionsFor(principal.Role)
	visible := make([]T, 0, len(items))
	for _, item := range items {
		desc := item.AuthzDescriptor()
		if !organizationGate(principal, desc).Allow {
			continue
		}
		if spec.scoped() && !ownershipGate(principal, spec, granted, desc).Allow {
			continue
		}
		visible = append(visible, item)
	}
	return visible
}

// Scope answers "what subset of a resource kind can principal see" so
// that repositories can narrow listing queries up front instead of
// filtering after the fetch.
type Scope int

const (
	// ScopeNone grants nothing; the listing should be empty.
	ScopeNone Scope = iota
	// ScopeOwn limits the listing to rows owned by or assigned to the
	// principal.
	ScopeOwn
	// ScopeAll spans the principal's whole organization.
	ScopeAll
)

// ScopeFor resolves the widest scope principal holds for a
// resource/action pair, trying the :all variant before :own.
func ScopeFor(principal Principal, resource, action string) Scope {
	granted := PermissionsFor(principal.Role)
	if _, ok := granted[Permission(resource+":"+action+":all")]; ok {
		return ScopeAll
	}
	if _, ok := granted[Permission(resource+":"+action+":own")]; ok {
		return ScopeOwn
	}
	return ScopeNone
}

// ManagementOp names an operation that mutates another user's role or
// organizational membership.
type ManagementOp string

const (
	// ManageGrantRole is the initial role grant when a user is created.
	ManageGrantRole ManagementOp = "grant_role"
	// ManageChangeRole changes an existing member's role.
	ManageChangeRole ManagementOp = "change_role"
	// ManageRemoveMember removes a member from the organization.
	ManageRemoveMember ManagementOp = "remove_member"
	// ManageDeleteUser deletes a user account.
	ManageDeleteUser ManagementOp = "delete_user"
)

// ManagementTarget is the user a management operation acts on.
type ManagementTarget struct {
	ID    string
	Role  Role
	OrgID string
}

// AuthorizeManagement governs role and membership mutation. It does not
// reuse Authorize's permission-scope logic: the rule is that the actor
// may never target themselves, actor and target must share an
// organization, and the actor must strictly outrank the target. The one
// exception is the initial grant, where holding user:create suffices.
//
// The self-target rule is absolute and checked before anything else; not
// even OWNER can change their own role, remove themselves, or delete
// their own account through this path.
func AuthorizeManagement(actor Principal, target ManagementTarget, op ManagementOp) Decision {
	// Validate both roles up front so a malformed target fails loudly.
	LevelOf(actor.Role)
	LevelOf(target.Role)

	if actor.ID == target.ID {
		return denied(ReasonSelfTargetForbidden)
	}
	if actor.OrgID != target.OrgID {
		return denied(ReasonCrossOrganizationAccess)
	}
	if op == ManageGrantRole && HasPermission(actor.Role, UserCreate) {
		return allowed()
	}
	if !CanManage(actor.Role, target.Role) {
		return denied(ReasonInsufficientHierarchy)
	}
	return allowed()
}
