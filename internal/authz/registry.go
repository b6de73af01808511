package authz

import "strings"

// Platform permissions. The set is closed; no permission is created at
// runtime.
const (
	TaskCreate    Permission = "task:create"
	TaskReadAll   Permission = "task:read:all"
	TaskReadOwn   Permission = "task:read:own"
	TaskUpdateAll Permission = "task:update:all"
	TaskUpdateOwn Permission = "task:update:own"
	TaskDeleteAll Permission = "task:delete:all"
	TaskDeleteOwn Permission = "task:delete:own"

	UserCreate Permission = "user:create"
	UserRead   Permission = "user:read"
	UserUpdate Permission = "user:update"
	UserDelete Permission = "user:delete"

	OrgManage Permission = "org:manage"
	OrgRead   Permission = "org:read"

	AuditRead Permission = "audit:read"
)

// rolePermissions is the literal role→permission table. Built once at
// init, never mutated, safe for concurrent lookup without locking.
//
// ADMIN deliberately does not receive user:delete or org:manage even
// though OWNER does. The asymmetry is product intent, not an oversight;
// do not normalize it into strict superset inheritance.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleOwner: permissionSet(
		TaskCreate, TaskReadAll, TaskReadOwn, TaskUpdateAll, TaskUpdateOwn,
		TaskDeleteAll, TaskDeleteOwn,
		UserCreate, UserRead, UserUpdate, UserDelete,
		OrgManage, OrgRead,
		AuditRead,
	),
	RoleAdmin: permissionSet(
		TaskCreate, TaskReadAll, TaskReadOwn, TaskUpdateAll, TaskUpdateOwn,
		TaskDeleteAll, TaskDeleteOwn,
		UserCreate, UserRead, UserUpdate,
		OrgRead,
		AuditRead,
	),
	RoleViewer: permissionSet(
		TaskCreate, TaskReadOwn, TaskUpdateOwn, TaskDeleteOwn,
		OrgRead,
	),
}

// allPermissions indexes every known permission by its parsed form.
var allPermissions = buildPermissionIndex()

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func buildPermissionIndex() map[Permission]permissionSpec {
	index := make(map[Permission]permissionSpec)
	for _, set := range rolePermissions {
		for p := range set {
			if _, ok := index[p]; ok {
				continue
			}
			index[p] = parsePermission(p)
		}
	}
	return index
}

// permissionSpec is the decomposed form of a permission identifier.
type permissionSpec struct {
	resource string
	action   string
	scope    string
}

// scoped reports whether the permission carries an own/all qualifier.
func (s permissionSpec) scoped() bool { return s.scope != "" }

// allVariant returns the resource:action:all counterpart of a scoped
// permission.
func (s permissionSpec) allVariant() Permission {
	return Permission(s.resource + ":" + s.action + ":all")
}

func parsePermission(p Permission) permissionSpec {
	parts := strings.Split(string(p), ":")
	switch len(parts) {
	case 2:
		return permissionSpec{resource: parts[0], action: parts[1]}
	case 3:
		return permissionSpec{resource: parts[0], action: parts[1], scope: parts[2]}
	}
	panic(&InvalidPermissionError{Permission: p})
}

// PermissionsFor returns the complete permission set granted to a role.
// The returned map is shared and must not be mutated. An unknown role is
// a programming error and panics with InvalidRoleError.
func PermissionsFor(role Role) map[Permission]struct{} {
	set, ok := rolePermissions[role]
	if !ok {
		panic(&InvalidRoleError{Role: role})
	}
	return set
}

// HasPermission reports whether role holds perm. Unknown roles panic;
// unknown permissions panic with InvalidPermissionError.
func HasPermission(role Role, perm Permission) bool {
	set := PermissionsFor(role)
	if _, ok := allPermissions[perm]; !ok {
		panic(&InvalidPermissionError{Permission: perm})
	}
	_, ok := set[perm]
	return ok
}

func specFor(perm Permission) permissionSpec {
	spec, ok := allPermissions[perm]
	if !ok {
		panic(&InvalidPermissionError{Permission: perm})
	}
	return spec
}
