package authz

// roleLevels orders roles for management checks. The level is only ever
// compared, never used for permission lookups.
var roleLevels = map[Role]int{
	RoleOwner:  3,
	RoleAdmin:  2,
	RoleViewer: 1,
}

// LevelOf returns the hierarchy level of a role. Unknown roles panic with
// InvalidRoleError.
func LevelOf(role Role) int {
	level, ok := roleLevels[role]
	if !ok {
		panic(&InvalidRoleError{Role: role})
	}
	return level
}

// CanManage reports whether manager outranks target strictly. A role can
// never manage an equal or higher role, including itself. Used only for
// user and membership management, never for task permission checks.
func CanManage(manager, target Role) bool {
	return LevelOf(manager) > LevelOf(target)
}
