package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func principal(id string, role Role, org string) Principal {
	return Principal{ID: id, Role: role, OrgID: org}
}

func TestAuthorizeCreationNeedsNoResource(t *testing.T) {
	for _, role := range []Role{RoleOwner, RoleAdmin, RoleViewer} {
		decision := Authorize(principal("u1", role, "o1"), TaskCreate, nil)
		require.True(t, decision.Allow, "every role may create tasks")
	}
}

func TestAuthorizeMissingPermission(t *testing.T) {
	decision := Authorize(principal("u1", RoleViewer, "o1"), TaskReadAll, nil)
	require.False(t, decision.Allow)
	require.Equal(t, ReasonMissingPermission, decision.Reason)
}

func TestCrossOrganizationBoundaryIsAbsolute(t *testing.T) {
	foreign := &ResourceDescriptor{OwnerID: "u9", OrgID: "o2"}
	cases := []struct {
		role Role
		perm Permission
	}{
		{RoleOwner, TaskReadAll},
		{RoleOwner, TaskDeleteAll},
		{RoleOwner, OrgManage},
		{RoleAdmin, TaskUpdateAll},
		{RoleAdmin, UserRead},
		{RoleViewer, TaskReadOwn},
		{RoleViewer, OrgRead},
	}
	for _, tc := range cases {
		decision := Authorize(principal("u1", tc.role, "o1"), tc.perm, foreign)
		require.False(t, decision.Allow, "%s/%s must not cross organizations", tc.role, tc.perm)
		require.Equal(t, ReasonCrossOrganizationAccess, decision.Reason)
	}
}

func TestViewerOwnershipFallback(t *testing.T) {
	viewer := principal("u1", RoleViewer, "o1")

	owned := &ResourceDescriptor{OwnerID: "u1", OrgID: "o1"}
	require.True(t, Authorize(viewer, TaskReadOwn, owned).Allow)

	assigned := &ResourceDescriptor{OwnerID: "u2", OrgID: "o1", AssignedToID: "u1"}
	require.True(t, Authorize(viewer, TaskReadOwn, assigned).Allow, "assignee may read")

	foreign := &ResourceDescriptor{OwnerID: "u2", OrgID: "o1", AssignedToID: "u3"}
	decision := Authorize(viewer, TaskReadOwn, foreign)
	require.False(t, decision.Allow)
	require.Equal(t, ReasonNotOwner, decision.Reason)
}

func TestAssignmentDoesNotGrantWriteAccess(t *testing.T) {
	viewer := principal("u1", RoleViewer, "o1")
	assigned := &ResourceDescriptor{OwnerID: "u2", OrgID: "o1", AssignedToID: "u1"}

	for _, perm := range []Permission{TaskUpdateOwn, TaskDeleteOwn} {
		decision := Authorize(viewer, perm, assigned)
		require.False(t, decision.Allow, "assignment only covers read, not %s", perm)
		require.Equal(t, ReasonNotOwner, decision.Reason)
	}
}

func TestOrganizationalOmniscience(t *testing.T) {
	resource := &ResourceDescriptor{OwnerID: "u9", OrgID: "o1", AssignedToID: "u8"}
	for _, role := range []Role{RoleOwner, RoleAdmin} {
		require.True(t, Authorize(principal("u1", role, "o1"), TaskReadAll, resource).Allow)
		require.True(t, Authorize(principal("u1", role, "o1"), TaskReadOwn, resource).Allow,
			"holding the :all variant satisfies the :own request")
	}
}

func TestUnscopedPermissionsSkipOwnershipGate(t *testing.T) {
	// org:read carries no own/all distinction; organization scope alone
	// governs it even when the descriptor names another owner.
	resource := &ResourceDescriptor{OwnerID: "u9", OrgID: "o1"}
	decision := Authorize(principal("u1", RoleViewer, "o1"), OrgRead, resource)
	require.True(t, decision.Allow)
}

func TestAuthorizeGateOrder(t *testing.T) {
	// Gate 1 fires before gate 2: a missing permission wins over a
	// cross-organization resource.
	foreign := &ResourceDescriptor{OwnerID: "u1", OrgID: "o2"}
	decision := Authorize(principal("u1", RoleViewer, "o1"), TaskReadAll, foreign)
	require.Equal(t, ReasonMissingPermission, decision.Reason)

	// Gate 2 fires before gate 3: cross-organization wins over ownership.
	decision = Authorize(principal("u1", RoleViewer, "o1"), TaskReadOwn, foreign)
	require.Equal(t, ReasonCrossOrganizationAccess, decision.Reason)
}

func TestAuthorizeIsDeterministic(t *testing.T) {
	p := principal("u1", RoleViewer, "o1")
	resource := &ResourceDescriptor{OwnerID: "u2", OrgID: "o1"}
	first := Authorize(p, TaskDeleteOwn, resource)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Authorize(p, TaskDeleteOwn, resource))
	}
}

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name      string
		principal Principal
		perm      Permission
		resource  *ResourceDescriptor
		allow     bool
		reason    DenialReason
	}{
		{
			name:      "viewer deleting someone else's task",
			principal: principal("u1", RoleViewer, "o1"),
			perm:      TaskDeleteOwn,
			resource:  &ResourceDescriptor{OwnerID: "u2", OrgID: "o1"},
			reason:    ReasonNotOwner,
		},
		{
			name:      "admin deleting a user",
			principal: principal("u1", RoleAdmin, "o1"),
			perm:      UserDelete,
			reason:    ReasonMissingPermission,
		},
		{
			name:      "owner managing a foreign organization",
			principal: principal("u1", RoleOwner, "o1"),
			perm:      OrgManage,
			resource:  &ResourceDescriptor{OrgID: "o2"},
			reason:    ReasonCrossOrganizationAccess,
		},
		{
			name:      "admin updating any task in its organization",
			principal: principal("u1", RoleAdmin, "o1"),
			perm:      TaskUpdateAll,
			resource:  &ResourceDescriptor{OwnerID: "u9", OrgID: "o1"},
			allow:     true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Authorize(tc.principal, tc.perm, tc.resource)
			require.Equal(t, tc.allow, decision.Allow)
			if !tc.allow {
				require.Equal(t, tc.reason, decision.Reason)
			}
		})
	}
}

func TestFilterVisible(t *testing.T) {
	viewer := principal("u1", RoleViewer, "o1")
	tasks := []ResourceDescriptor{
		{OwnerID: "u1", OrgID: "o1"},
		{OwnerID: "u1", OrgID: "o1"},
		{OwnerID: "u2", OrgID: "o1"},
		{OwnerID: "u3", OrgID: "o1"},
		{OwnerID: "u4", OrgID: "o1"},
	}

	visible := FilterVisible(viewer, TaskReadOwn, tasks)
	require.Len(t, visible, 2)
	for _, task := range visible {
		require.Equal(t, "u1", task.OwnerID)
	}

	// Assignment counts for read filtering.
	tasks[2].AssignedToID = "u1"
	require.Len(t, FilterVisible(viewer, TaskReadOwn, tasks), 3)

	// Admin sees the whole organization, but never a foreign one.
	admin := principal("a1", RoleAdmin, "o1")
	tasks = append(tasks, ResourceDescriptor{OwnerID: "a1", OrgID: "o2"})
	require.Len(t, FilterVisible(admin, TaskReadAll, tasks), 5)
}

func TestScopeFor(t *testing.T) {
	require.Equal(t, ScopeAll, ScopeFor(principal("u1", RoleOwner, "o1"), "task", "read"))
	require.Equal(t, ScopeAll, ScopeFor(principal("u1", RoleAdmin, "o1"), "task", "read"))
	require.Equal(t, ScopeOwn, ScopeFor(principal("u1", RoleViewer, "o1"), "task", "read"))
	require.Equal(t, ScopeNone, ScopeFor(principal("u1", RoleViewer, "o1"), "user", "read"))
}

func TestManagementSelfProtection(t *testing.T) {
	owner := principal("u1", RoleOwner, "o1")
	self := ManagementTarget{ID: "u1", Role: RoleOwner, OrgID: "o1"}

	for _, op := range []ManagementOp{ManageChangeRole, ManageRemoveMember, ManageDeleteUser} {
		decision := AuthorizeManagement(owner, self, op)
		require.False(t, decision.Allow, "self %s must be forbidden", op)
		require.Equal(t, ReasonSelfTargetForbidden, decision.Reason)
	}
}

func TestManagementHierarchy(t *testing.T) {
	admin := principal("u1", RoleAdmin, "o1")

	peer := ManagementTarget{ID: "u2", Role: RoleAdmin, OrgID: "o1"}
	decision := AuthorizeManagement(admin, peer, ManageChangeRole)
	require.False(t, decision.Allow)
	require.Equal(t, ReasonInsufficientHierarchy, decision.Reason)

	above := ManagementTarget{ID: "u3", Role: RoleOwner, OrgID: "o1"}
	decision = AuthorizeManagement(admin, above, ManageRemoveMember)
	require.False(t, decision.Allow)
	require.Equal(t, ReasonInsufficientHierarchy, decision.Reason)

	below := ManagementTarget{ID: "u4", Role: RoleViewer, OrgID: "o1"}
	require.True(t, AuthorizeManagement(admin, below, ManageChangeRole).Allow)
}

func TestManagementCrossOrganization(t *testing.T) {
	owner := principal("u1", RoleOwner, "o1")
	target := ManagementTarget{ID: "u2", Role: RoleViewer, OrgID: "o2"}
	decision := AuthorizeManagement(owner, target, ManageDeleteUser)
	require.False(t, decision.Allow)
	require.Equal(t, ReasonCrossOrganizationAccess, decision.Reason)
}

func TestManagementInitialGrant(t *testing.T) {
	// user:create lets ADMIN grant a peer role at creation time even
	// though the hierarchy alone would refuse it.
	admin := principal("u1", RoleAdmin, "o1")
	newAdmin := ManagementTarget{ID: "u2", Role: RoleAdmin, OrgID: "o1"}
	require.True(t, AuthorizeManagement(admin, newAdmin, ManageGrantRole).Allow)

	// Outside the grant path the hierarchy still applies.
	require.False(t, AuthorizeManagement(admin, newAdmin, ManageChangeRole).Allow)

	// VIEWER holds no user:create and outranks nobody.
	viewer := principal("u3", RoleViewer, "o1")
	decision := AuthorizeManagement(viewer, ManagementTarget{ID: "u4", Role: RoleViewer, OrgID: "o1"}, ManageGrantRole)
	require.False(t, decision.Allow)
	require.Equal(t, ReasonInsufficientHierarchy, decision.Reason)
}

func TestManagementSelfBeatsHierarchy(t *testing.T) {
	// Even where CanManage would permit, self-target is checked first.
	owner := principal("u1", RoleOwner, "o1")
	self := ManagementTarget{ID: "u1", Role: RoleViewer, OrgID: "o1"}
	decision := AuthorizeManagement(owner, self, ManageChangeRole)
	require.Equal(t, ReasonSelfTargetForbidden, decision.Reason)
}

func TestAuthorizeInvalidRolePanics(t *testing.T) {
	defer func() {
		_, ok := recover().(*InvalidRoleError)
		require.True(t, ok)
	}()
	Authorize(principal("u1", Role("ROOT"), "o1"), TaskCreate, nil)
}

func TestAuthorizeInvalidPermissionPanics(t *testing.T) {
	defer func() {
		_, ok := recover().(*InvalidPermissionError)
		require.True(t, ok)
	}()
	Authorize(principal("u1", RoleOwner, "o1"), Permission("task:transmogrify"), nil)
}
