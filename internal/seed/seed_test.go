package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store/memory"
)

const fixture = `
tenant: bank
orgUnits:
  - name: branch
    type: USER
roles:
  - name: teller
  - name: head-teller
    parents: [teller]
  - name: auditor
adminRoles:
  - name: branch-admin
    userOus: [branch]
users:
  - userId: alice
    orgUnit: branch
  - userId: bob
sdSets:
  - name: money-handling
    type: STATIC
    members: [teller, auditor]
permObjs:
  - name: vault
permissions:
  - object: vault
    operation: open
    roles: [head-teller]
assignments:
  - userId: alice
    role: teller
  - userId: bob
    role: branch-admin
    admin: true
`

func newAdminService(t *testing.T) (*admin.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	log := logging.New("error")
	reg := repo.NewRegistry(st, log)
	eval := sod.NewEvaluator(st, reg, log)
	return admin.NewService(st, reg, eval, audit.NewNopSink(), log), st
}

func TestApplyFixture(t *testing.T) {
	svc, st := newAdminService(t)
	ctx := context.Background()

	p, err := Parse([]byte(fixture))
	require.NoError(t, err)
	require.Equal(t, "bank", p.Tenant)

	require.NoError(t, Apply(ctx, svc, p, logging.New("error")))

	role, err := st.GetRole(ctx, "bank", "head-teller")
	require.NoError(t, err)
	assert.Equal(t, []string{"TELLER"}, role.Parents)

	user, err := st.GetUser(ctx, "bank", "alice")
	require.NoError(t, err)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, "TELLER", models.Normalize(user.Roles[0].Name))

	bob, err := st.GetUser(ctx, "bank", "bob")
	require.NoError(t, err)
	require.Len(t, bob.AdminRoles, 1)

	set, err := st.GetSDSet(ctx, "bank", "money-handling")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"TELLER", "AUDITOR"}, set.MemberNames())
	assert.Equal(t, 2, set.Cardinality)

	perm, err := st.GetPermission(ctx, "bank", "vault", "open", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"HEAD-TELLER"}, perm.Roles)
}

func TestApplyIsIdempotent(t *testing.T) {
	svc, st := newAdminService(t)
	ctx := context.Background()

	p, err := Parse([]byte(fixture))
	require.NoError(t, err)

	require.NoError(t, Apply(ctx, svc, p, logging.New("error")))
	require.NoError(t, Apply(ctx, svc, p, logging.New("error")))

	user, err := st.GetUser(ctx, "bank", "alice")
	require.NoError(t, err)
	assert.Len(t, user.Roles, 1)
}

func TestApplyRejectsCyclicFixture(t *testing.T) {
	svc, _ := newAdminService(t)
	ctx := context.Background()

	p, err := Parse([]byte(`
tenant: bank
roles:
  - name: a
  - name: b
    parents: [a]
`))
	require.NoError(t, err)
	require.NoError(t, Apply(ctx, svc, p, logging.New("error")))

	// a second fixture closing the loop must fail
	bad := &Policy{Tenant: "bank"}
	require.NoError(t, Apply(ctx, svc, bad, logging.New("error")))
	err = svc.AddRoleInheritance(ctx, "bank", "a", "b")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("tenant: [not: a: string"))
	assert.Error(t, err)
}
