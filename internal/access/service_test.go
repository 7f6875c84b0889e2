package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store/memory"
	"github.com/platformbuilds/sentra-core/pkg/cache"
	"github.com/platformbuilds/sentra-core/pkg/logger"
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
	sessions := cache.NewNoopValkeyCache(logger.NewNop())
	svc := NewService(st, reg, eval, sessions, audit.NewNopSink(), log)
	return &fixture{store: st, reg: reg, svc: svc}
}

func (f *fixture) addUser(t *testing.T, userID string, roles ...models.UserRole) {
	t.Helper()
	_, err := f.store.CreateUser(context.Background(), &models.User{
		TenantID: "t1", UserID: userID, Roles: roles,
	})
	require.NoError(t, err)
}

func (f *fixture) addPermission(t *testing.T, perm *models.Permission) {
	t.Helper()
	perm.TenantID = "t1"
	_, err := f.store.CreatePermission(context.Background(), perm)
	require.NoError(t, err)
}

func TestCreateSessionActivatesAssignedRoles(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", models.UserRole{Name: "CASHIER"}, models.UserRole{Name: "CLERK"})

	session, err := f.svc.CreateSession(context.Background(), "t1", "alice", nil, false)
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "ALICE", session.UserID)
	assert.ElementsMatch(t, []string{"CASHIER", "CLERK"}, session.ActiveRoleNames())
	assert.Empty(t, session.Warnings)
}

func TestCreateSessionRequestedSubset(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", models.UserRole{Name: "CASHIER"}, models.UserRole{Name: "CLERK"})

	session, err := f.svc.CreateSession(context.Background(), "t1", "alice", []string{"clerk", "AUDITOR"}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"CLERK"}, session.ActiveRoleNames())
	require.Len(t, session.Warnings, 1)
	assert.Equal(t, "AUDITOR", session.Warnings[0].Name)
	assert.Equal(t, "NOT_ASSIGNED", session.Warnings[0].Type)
}

func TestCreateSessionDropsExpiredAssignment(t *testing.T) {
	f := newFixture(t)
	expired := models.Constraint{
		BeginDate: "20200101",
		EndDate:   "20200201",
	}
	f.addUser(t, "alice",
		models.UserRole{Name: "CASHIER", Constraint: expired},
		models.UserRole{Name: "CLERK"})

	session, err := f.svc.CreateSession(context.Background(), "t1", "alice", nil, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"CLERK"}, session.ActiveRoleNames())
	require.Len(t, session.Warnings, 1)
	assert.Equal(t, "CASHIER", session.Warnings[0].Name)
	assert.Equal(t, "TEMPORAL", session.Warnings[0].Type)
}

func TestCreateSessionEnforcesDynamicSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.CreateSDSet(ctx, &models.SDSet{
		TenantID: "t1", Name: "payments", Type: models.SDSetDynamic,
		Members:     map[string]bool{"CASHIER": true, "SUPERVISOR": true},
		Cardinality: 2,
	})
	require.NoError(t, err)
	f.addUser(t, "alice",
		models.UserRole{Name: "CASHIER"},
		models.UserRole{Name: "SUPERVISOR"})

	session, err := f.svc.CreateSession(ctx, "t1", "alice", nil, false)
	require.NoError(t, err)

	// never both
	assert.Equal(t, []string{"CASHIER"}, session.ActiveRoleNames())
	require.Len(t, session.Warnings, 1)
	assert.Equal(t, "SUPERVISOR", session.Warnings[0].Name)
	assert.Equal(t, "DSD", session.Warnings[0].Type)
}

func TestCreateSessionUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSession(context.Background(), "t1", "ghost", nil, false)
	assert.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", models.UserRole{Name: "CASHIER"})
	ctx := context.Background()

	session, err := f.svc.CreateSession(ctx, "t1", "alice", nil, false)
	require.NoError(t, err)

	got, err := f.svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	require.NoError(t, f.svc.DeleteSession(ctx, session.ID))
	_, err = f.svc.GetSession(ctx, session.ID)
	assert.Error(t, err)
}

func TestCheckPermissionDirectUserGrant(t *testing.T) {
	f := newFixture(t)
	f.addPermission(t, &models.Permission{
		ObjName: "ledger", OpName: "read", Users: []string{"ALICE"},
	})

	// empty role set; direct grant must still authorize
	session := &models.Session{TenantID: "t1", UserID: "ALICE"}
	granted, err := f.svc.CheckPermission(context.Background(), session, "ledger", "read", "")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestCheckPermissionGroupSessionSkipsDirectGrants(t *testing.T) {
	f := newFixture(t)
	f.addPermission(t, &models.Permission{
		ObjName: "ledger", OpName: "read", Users: []string{"ALICE"},
	})

	session := &models.Session{TenantID: "t1", UserID: "ALICE", IsGroup: true}
	granted, err := f.svc.CheckPermission(context.Background(), session, "ledger", "read", "")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestCheckPermissionRoleGrantWithInheritance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// LEAD inherits ENGINEER; permission granted to ENGINEER
	require.NoError(t, f.reg.AddRelationship(ctx, "t1", models.HierarchyRole, "LEAD", "ENGINEER", false))
	f.addPermission(t, &models.Permission{
		ObjName: "pipeline", OpName: "deploy", Roles: []string{"ENGINEER"},
	})

	session := &models.Session{TenantID: "t1", UserID: "ALICE",
		Roles: []models.UserRole{{Name: "LEAD"}}}
	granted, err := f.svc.CheckPermission(ctx, session, "pipeline", "deploy", "")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestCheckPermissionDenyIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.addPermission(t, &models.Permission{
		ObjName: "ledger", OpName: "write", Roles: []string{"ACCOUNTANT"},
	})

	session := &models.Session{TenantID: "t1", UserID: "ALICE",
		Roles: []models.UserRole{{Name: "CLERK"}}}
	granted, err := f.svc.CheckPermission(context.Background(), session, "ledger", "write", "")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestCheckPermissionNotFoundIsHardError(t *testing.T) {
	f := newFixture(t)

	session := &models.Session{TenantID: "t1", UserID: "ALICE"}
	granted, err := f.svc.CheckPermission(context.Background(), session, "ledger", "burn", "")
	assert.False(t, granted)
	assert.True(t, errors.Is(err, ErrPermissionNotFound))
}

func TestCheckPermissionAdminFlagSelectsAdminRoles(t *testing.T) {
	f := newFixture(t)
	f.addPermission(t, &models.Permission{
		ObjName: "policy", OpName: "edit", IsAdmin: true, Roles: []string{"POLICY-ADMIN"},
	})

	ctx := context.Background()
	// RBAC role with the same name must not satisfy an admin permission
	session := &models.Session{TenantID: "t1", UserID: "ALICE",
		Roles: []models.UserRole{{Name: "POLICY-ADMIN"}}}
	granted, err := f.svc.CheckPermission(ctx, session, "policy", "edit", "")
	require.NoError(t, err)
	assert.False(t, granted)

	session = &models.Session{TenantID: "t1", UserID: "ALICE",
		AdminRoles: []models.UserAdminRole{{UserRole: models.UserRole{Name: "POLICY-ADMIN"}}}}
	granted, err = f.svc.CheckPermission(ctx, session, "policy", "edit", "")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestConstraintAllowsWindow(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC) // a Wednesday
	c := models.Constraint{
		BeginDate: "20260101",
		EndDate:   "20261231",
		BeginTime: "0900",
		EndTime:   "1700",
	}
	assert.True(t, constraintAllows(c, now))

	c.EndTime = "1000"
	assert.False(t, constraintAllows(c, now))
}
