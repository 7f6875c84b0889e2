package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/hier"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store"
	"github.com/platformbuilds/sentra-core/internal/store/memory"
)

type fixture struct {
	store *memory.Store
	reg   *repo.Registry
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	log := logging.New("error")
	reg := repo.NewRegistry(st, log)
	eval := sod.NewEvaluator(st, reg, log)
	return &fixture{
		store: st,
		reg:   reg,
		svc:   NewService(st, reg, eval, audit.NewNopSink(), log),
	}
}

func (f *fixture) mustCreateRole(t *testing.T, name string, parents ...string) *models.Role {
	t.Helper()
	role, err := f.svc.CreateRole(context.Background(), &models.Role{
		TenantID: "t1", Name: name, Parents: parents,
	})
	require.NoError(t, err)
	return role
}

func (f *fixture) mustCreateUser(t *testing.T, userID string) {
	t.Helper()
	_, err := f.svc.CreateUser(context.Background(), &models.User{TenantID: "t1", UserID: userID})
	require.NoError(t, err)
}

func TestCreateRoleLinksParents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreateRole(t, "employee")
	f.mustCreateRole(t, "engineer", "employee")

	g, err := f.reg.Graph(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.True(t, g.HasEdge("ENGINEER", "EMPLOYEE"))
}

func TestCreateRoleRequiresName(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRole(context.Background(), &models.Role{TenantID: "t1", Name: "  "})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestAddRoleInheritanceRequiresBothRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreateRole(t, "engineer")

	err := f.svc.AddRoleInheritance(ctx, "t1", "engineer", "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	f.mustCreateRole(t, "employee")
	require.NoError(t, f.svc.AddRoleInheritance(ctx, "t1", "engineer", "employee"))

	// duplicate rejected through re-validation
	err = f.svc.AddRoleInheritance(ctx, "t1", "engineer", "employee")
	var verr *hier.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, hier.CodeRelationshipExists, verr.Code)
}

func TestDeleteRoleRefusedWhileChildrenExist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreateRole(t, "employee")
	f.mustCreateRole(t, "engineer", "employee")
	f.mustCreateUser(t, "alice")
	require.NoError(t, f.svc.AssignUser(ctx, "t1", "alice", "employee", nil))

	err := f.svc.DeleteRole(ctx, "t1", "employee")
	var perr *PolicyError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CodeDeleteHasChild, perr.Code)

	// all-or-nothing: nothing was deleted or deassigned
	role, err := f.store.GetRole(ctx, "t1", "employee")
	require.NoError(t, err)
	assert.Contains(t, role.Occupants, "ALICE")
	user, err := f.store.GetUser(ctx, "t1", "alice")
	require.NoError(t, err)
	require.Len(t, user.Roles, 1)
}

func TestDeleteRoleCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreateRole(t, "employee")
	f.mustCreateRole(t, "engineer", "employee")
	f.mustCreateUser(t, "alice")
	require.NoError(t, f.svc.AssignUser(ctx, "t1", "alice", "engineer", nil))

	_, err := f.svc.CreatePermObj(ctx, &models.PermObj{TenantID: "t1", Name: "pipeline"})
	require.NoError(t, err)
	_, err = f.svc.CreatePermission(ctx, &models.Permission{
		TenantID: "t1", ObjName: "pipeline", OpName: "deploy", Roles: []string{"engineer"},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRole(ctx, "t1", "engineer"))

	_, err = f.store.GetRole(ctx, "t1", "engineer")
	assert.ErrorIs(t, err, store.ErrNotFound)

	user, err := f.store.GetUser(ctx, "t1", "alice")
	require.NoError(t, err)
	assert.Empty(t, user.Roles)

	perm, err := f.store.GetPermission(ctx, "t1", "pipeline", "deploy", "")
	require.NoError(t, err)
	assert.Empty(t, perm.Roles)

	g, err := f.reg.Graph(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.False(t, g.Contains("ENGINEER"))
}

func TestAssignUserCopiesRoleConstraint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRole(ctx, &models.Role{
		TenantID: "t1", Name: "nightshift",
		Constraint: models.Constraint{BeginTime: "2200", EndTime: "0600"},
	})
	require.NoError(t, err)
	f.mustCreateUser(t, "alice")

	require.NoError(t, f.svc.AssignUser(ctx, "t1", "alice", "nightshift", nil))

	user, err := f.store.GetUser(ctx, "t1", "alice")
	require.NoError(t, err)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, "2200", user.Roles[0].Constraint.BeginTime)

	// explicit constraint wins over the role default
	f.mustCreateRole(t, "dayshift")
	custom := &models.Constraint{BeginTime: "0900", EndTime: "1700"}
	require.NoError(t, f.svc.AssignUser(ctx, "t1", "alice", "dayshift", custom))
	user, err = f.store.GetUser(ctx, "t1", "alice")
	require.NoError(t, err)
	require.Len(t, user.Roles, 2)
	assert.Equal(t, "0900", user.Roles[1].Constraint.BeginTime)
}

func TestAssignUserBlockedBySSDBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreateRole(t, "cashier")
	f.mustCreateRole(t, "supervisor")
	f.mustCreateUser(t, "alice")
	_, err := f.svc.CreateSDSet(ctx, &models.SDSet{
		TenantID: "t1", Name: "payments", Type: models.SDSetStatic,
		Members: map[string]bool{"CASHIER": true, "SUPERVISOR": true},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignUser(ctx, "t1", "alice", "cashier", nil))

	err = f.svc.AssignUser(ctx, "t1", "alice", "supervisor", nil)
	var v *sod.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "PAYMENTS", v.Set)

	// blocked assignment wrote nothing
	user, err := f.store.GetUser(ctx, "t1", "alice")
	require.NoError(t, err)
	require.Len(t, user.Roles, 1)
	role, err := f.store.GetRole(ctx, "t1", "supervisor")
	require.NoError(t, err)
	assert.Empty(t, role.Occupants)
}

func TestDeassignUserRemovesOccupant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreateRole(t, "cashier")
	f.mustCreateUser(t, "alice")
	require.NoError(t, f.svc.AssignUser(ctx, "t1", "alice", "cashier", nil))
	require.NoError(t, f.svc.DeassignUser(ctx, "t1", "alice", "cashier"))

	user, err := f.store.GetUser(ctx, "t1", "alice")
	require.NoError(t, err)
	assert.Empty(t, user.Roles)
	role, err := f.store.GetRole(ctx, "t1", "cashier")
	require.NoError(t, err)
	assert.Empty(t, role.Occupants)

	// deassigning again is a validation error
	err = f.svc.DeassignUser(ctx, "t1", "alice", "cashier")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSDSetDefaultsAndMemberValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreateRole(t, "cashier")

	set, err := f.svc.CreateSDSet(ctx, &models.SDSet{
		TenantID: "t1", Name: "payments", Type: models.SDSetStatic,
		Members: map[string]bool{"cashier": true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Cardinality)
	assert.Equal(t, []string{"CASHIER"}, set.MemberNames())

	// unknown member role rejected
	_, err = f.svc.CreateSDSet(ctx, &models.SDSet{
		TenantID: "t1", Name: "bad", Type: models.SDSetStatic,
		Members: map[string]bool{"GHOST": true},
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// unknown type rejected
	_, err = f.svc.CreateSDSet(ctx, &models.SDSet{TenantID: "t1", Name: "worse", Type: "SOMETIMES"})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestRemoveLastSDSetMemberLeavesPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreateRole(t, "cashier")

	_, err := f.svc.CreateSDSet(ctx, &models.SDSet{
		TenantID: "t1", Name: "payments", Type: models.SDSetStatic,
		Members: map[string]bool{"CASHIER": true},
	})
	require.NoError(t, err)

	updated, err := f.svc.RemoveSDSetMember(ctx, "t1", "payments", "cashier")
	require.NoError(t, err)
	assert.Empty(t, updated.MemberNames())
	assert.True(t, updated.Members[models.SDSetPlaceholder])
	assert.Len(t, updated.Members, 1)
}

func TestAddSDSetMemberDisplacesPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreateRole(t, "cashier")

	_, err := f.svc.CreateSDSet(ctx, &models.SDSet{
		TenantID: "t1", Name: "payments", Type: models.SDSetStatic,
	})
	require.NoError(t, err)

	updated, err := f.svc.AddSDSetMember(ctx, "t1", "payments", "cashier")
	require.NoError(t, err)
	assert.Equal(t, []string{"CASHIER"}, updated.MemberNames())
	assert.False(t, updated.Members[models.SDSetPlaceholder])
}

func TestGrantToRoleValidatesTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePermObj(ctx, &models.PermObj{TenantID: "t1", Name: "ledger"})
	require.NoError(t, err)
	_, err = f.svc.CreatePermission(ctx, &models.Permission{
		TenantID: "t1", ObjName: "ledger", OpName: "read",
	})
	require.NoError(t, err)

	err = f.svc.GrantToRole(ctx, "t1", "ledger", "read", "", "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	f.mustCreateRole(t, "auditor")
	require.NoError(t, f.svc.GrantToRole(ctx, "t1", "ledger", "read", "", "auditor"))

	perm, err := f.store.GetPermission(ctx, "t1", "ledger", "read", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"AUDITOR"}, perm.Roles)

	require.NoError(t, f.svc.RevokeFromRole(ctx, "t1", "ledger", "read", "", "auditor"))
	perm, err = f.store.GetPermission(ctx, "t1", "ledger", "read", "")
	require.NoError(t, err)
	assert.Empty(t, perm.Roles)
}

func TestAdminPermissionGrantRequiresAdminRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePermObj(ctx, &models.PermObj{TenantID: "t1", Name: "policy", IsAdmin: true})
	require.NoError(t, err)
	_, err = f.svc.CreatePermission(ctx, &models.Permission{
		TenantID: "t1", ObjName: "policy", OpName: "edit", IsAdmin: true,
	})
	require.NoError(t, err)

	// a regular role of that name is not enough
	f.mustCreateRole(t, "policy-admin")
	err = f.svc.GrantToRole(ctx, "t1", "policy", "edit", "", "policy-admin")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.CreateAdminRole(ctx, &models.AdminRole{
		Role: models.Role{TenantID: "t1", Name: "policy-admin"},
	})
	require.NoError(t, err)
	assert.NoError(t, f.svc.GrantToRole(ctx, "t1", "policy", "edit", "", "policy-admin"))
}

func TestCreatePermissionRequiresObject(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreatePermission(context.Background(), &models.Permission{
		TenantID: "t1", ObjName: "ghost", OpName: "read",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeletePermObjRemovesItsPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePermObj(ctx, &models.PermObj{TenantID: "t1", Name: "ledger"})
	require.NoError(t, err)
	_, err = f.svc.CreatePermission(ctx, &models.Permission{TenantID: "t1", ObjName: "ledger", OpName: "read"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePermObj(ctx, "t1", "ledger"))
	_, err = f.store.GetPermission(ctx, "t1", "ledger", "read", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOrgUnitLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrgUnit(ctx, &models.OrgUnit{TenantID: "t1", Name: "corp", Type: "user"})
	require.NoError(t, err)
	_, err = f.svc.CreateOrgUnit(ctx, &models.OrgUnit{
		TenantID: "t1", Name: "finance", Type: models.OrgUnitUser, Parents: []string{"corp"},
	})
	require.NoError(t, err)

	// parent with a child cannot be deleted
	err = f.svc.DeleteOrgUnit(ctx, "t1", models.OrgUnitUser, "corp")
	var perr *PolicyError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CodeDeleteHasChild, perr.Code)

	require.NoError(t, f.svc.DeleteOrgUnit(ctx, "t1", models.OrgUnitUser, "finance"))
	require.NoError(t, f.svc.DeleteOrgUnit(ctx, "t1", models.OrgUnitUser, "corp"))
}

func TestCreateUserValidatesOrgUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, &models.User{TenantID: "t1", UserID: "alice", OrgUnit: "ghost"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.CreateOrgUnit(ctx, &models.OrgUnit{TenantID: "t1", Name: "finance", Type: models.OrgUnitUser})
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, &models.User{TenantID: "t1", UserID: "alice", OrgUnit: "finance"})
	assert.NoError(t, err)
}

func TestDeleteUserClearsOccupancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreateRole(t, "cashier")
	f.mustCreateUser(t, "alice")
	require.NoError(t, f.svc.AssignUser(ctx, "t1", "alice", "cashier", nil))

	require.NoError(t, f.svc.DeleteUser(ctx, "t1", "alice"))

	role, err := f.store.GetRole(ctx, "t1", "cashier")
	require.NoError(t, err)
	assert.Empty(t, role.Occupants)
}

func TestAddRoleDescendantAndAscendant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreateRole(t, "employee")

	_, err := f.svc.AddRoleDescendant(ctx, &models.Role{TenantID: "t1", Name: "engineer"}, "employee")
	require.NoError(t, err)
	_, err = f.svc.AddRoleAscendant(ctx, &models.Role{TenantID: "t1", Name: "staff"}, "employee")
	require.NoError(t, err)

	g, err := f.reg.Graph(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.True(t, g.HasEdge("ENGINEER", "EMPLOYEE"))
	assert.True(t, g.HasEdge("EMPLOYEE", "STAFF"))
}
