package sod

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/store/memory"
)

type fixture struct {
	store *memory.Store
	reg   *repo.Registry
	eval  *Evaluator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	reg := repo.NewRegistry(st, logging.New("error"))
	return &fixture{
		store: st,
		reg:   reg,
		eval:  NewEvaluator(st, reg, logging.New("error")),
	}
}

func (f *fixture) addSDSet(t *testing.T, name, typ string, cardinality int, members ...string) {
	t.Helper()
	m := make(map[string]bool, len(members))
	for _, member := range members {
		m[member] = true
	}
	_, err := f.store.CreateSDSet(context.Background(), &models.SDSet{
		TenantID:    "t1",
		Name:        name,
		Type:        typ,
		Members:     m,
		Cardinality: cardinality,
	})
	require.NoError(t, err)
}

func TestValidateAssignAllowsUnrelatedRole(t *testing.T) {
	f := newFixture(t)
	f.addSDSet(t, "payments", models.SDSetStatic, 2, "CASHIER", "SUPERVISOR")

	user := &models.User{TenantID: "t1", UserID: "ALICE",
		Roles: []models.UserRole{{Name: "CLERK"}}}
	assert.NoError(t, f.eval.ValidateAssign(context.Background(), user, "AUDITOR"))
}

func TestValidateAssignBlocksSecondMember(t *testing.T) {
	f := newFixture(t)
	f.addSDSet(t, "payments", models.SDSetStatic, 2, "CASHIER", "SUPERVISOR")

	user := &models.User{TenantID: "t1", UserID: "ALICE",
		Roles: []models.UserRole{{Name: "CASHIER"}}}
	err := f.eval.ValidateAssign(context.Background(), user, "supervisor")

	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "PAYMENTS", v.Set)
	assert.Equal(t, "SUPERVISOR", v.Role)
	assert.Equal(t, 2, v.Cardinality)
}

func TestValidateAssignMatchesThroughInheritance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// HEAD-CASHIER inherits CASHIER; holding HEAD-CASHIER counts as CASHIER
	require.NoError(t, f.reg.AddRelationship(ctx, "t1", models.HierarchyRole, "HEAD-CASHIER", "CASHIER", false))
	f.addSDSet(t, "payments", models.SDSetStatic, 2, "CASHIER", "SUPERVISOR")

	user := &models.User{TenantID: "t1", UserID: "ALICE",
		Roles: []models.UserRole{{Name: "HEAD-CASHIER"}}}
	err := f.eval.ValidateAssign(ctx, user, "SUPERVISOR")

	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "PAYMENTS", v.Set)
}

func TestValidateAssignHonorsCardinalityAboveTwo(t *testing.T) {
	f := newFixture(t)
	f.addSDSet(t, "approvals", models.SDSetStatic, 3, "DRAFTER", "REVIEWER", "APPROVER")
	ctx := context.Background()

	user := &models.User{TenantID: "t1", UserID: "ALICE",
		Roles: []models.UserRole{{Name: "DRAFTER"}}}
	assert.NoError(t, f.eval.ValidateAssign(ctx, user, "REVIEWER"))

	user.Roles = append(user.Roles, models.UserRole{Name: "REVIEWER"})
	err := f.eval.ValidateAssign(ctx, user, "APPROVER")
	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, 3, v.Cardinality)
}

func TestValidateAssignIgnoresPlaceholderMember(t *testing.T) {
	f := newFixture(t)
	f.addSDSet(t, "empty", models.SDSetStatic, 2, models.SDSetPlaceholder)

	user := &models.User{TenantID: "t1", UserID: "ALICE"}
	assert.NoError(t, f.eval.ValidateAssign(context.Background(), user, models.SDSetPlaceholder))
}

func TestFilterActivationFirstRequestedWins(t *testing.T) {
	f := newFixture(t)
	f.addSDSet(t, "payments", models.SDSetDynamic, 2, "CASHIER", "SUPERVISOR")

	active, warns, err := f.eval.FilterActivation(context.Background(), "t1", []models.UserRole{
		{Name: "CASHIER"}, {Name: "SUPERVISOR"}, {Name: "CLERK"},
	})
	require.NoError(t, err)

	require.Len(t, active, 2)
	assert.Equal(t, "CASHIER", active[0].Name)
	assert.Equal(t, "CLERK", active[1].Name)

	require.Len(t, warns, 1)
	assert.Equal(t, "SUPERVISOR", warns[0].Name)
	assert.Equal(t, "DSD", warns[0].Type)
}

func TestFilterActivationOrderDecidesWinner(t *testing.T) {
	f := newFixture(t)
	f.addSDSet(t, "payments", models.SDSetDynamic, 2, "CASHIER", "SUPERVISOR")

	active, warns, err := f.eval.FilterActivation(context.Background(), "t1", []models.UserRole{
		{Name: "SUPERVISOR"}, {Name: "CASHIER"},
	})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "SUPERVISOR", active[0].Name)
	require.Len(t, warns, 1)
	assert.Equal(t, "CASHIER", warns[0].Name)
}

func TestFilterActivationIgnoresStaticSets(t *testing.T) {
	f := newFixture(t)
	f.addSDSet(t, "payments", models.SDSetStatic, 2, "CASHIER", "SUPERVISOR")

	active, warns, err := f.eval.FilterActivation(context.Background(), "t1", []models.UserRole{
		{Name: "CASHIER"}, {Name: "SUPERVISOR"},
	})
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assert.Empty(t, warns)
}

func TestInvalidateDropsStaleLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := &models.User{TenantID: "t1", UserID: "ALICE",
		Roles: []models.UserRole{{Name: "CASHIER"}}}

	// warm the cache with no sets present
	require.NoError(t, f.eval.ValidateAssign(ctx, user, "SUPERVISOR"))

	f.addSDSet(t, "payments", models.SDSetStatic, 2, "CASHIER", "SUPERVISOR")

	// cached lookup still sees no sets until invalidated
	require.NoError(t, f.eval.ValidateAssign(ctx, user, "SUPERVISOR"))

	f.eval.Invalidate("t1")
	err := f.eval.ValidateAssign(ctx, user, "SUPERVISOR")
	var v *Violation
	assert.True(t, errors.As(err, &v))
}
