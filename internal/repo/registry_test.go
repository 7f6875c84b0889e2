package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/sentra-core/internal/hier"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/store/memory"
	"github.com/platformbuilds/sentra-core/pkg/cache"
	"github.com/platformbuilds/sentra-core/pkg/logger"
)

func newTestRegistry(t *testing.T) (*Registry, *memory.Store) {
	t.Helper()
	st := memory.New()
	return NewRegistry(st, logging.New("error")), st
}

func TestGraphBuiltLazilyFromStore(t *testing.T) {
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, st.SetRelationships(ctx, "t1", models.HierarchyRole, []models.Relationship{
		{Child: "ENGINEER", Parent: "EMPLOYEE"},
	}))

	g, err := reg.Graph(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.True(t, g.HasEdge("ENGINEER", "EMPLOYEE"))

	// same instance on second call
	g2, err := reg.Graph(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.Same(t, g, g2)
}

func TestAddRelationshipPersistsAndApplies(t *testing.T) {
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddRelationship(ctx, "t1", models.HierarchyRole, "engineer", "employee", false))

	rels, err := st.GetRelationships(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.Equal(t, []models.Relationship{{Child: "ENGINEER", Parent: "EMPLOYEE"}}, rels)

	g, err := reg.Graph(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.True(t, g.HasEdge("ENGINEER", "EMPLOYEE"))
}

func TestAddRelationshipRejectsCycle(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddRelationship(ctx, "t1", models.HierarchyRole, "B", "A", false))
	require.NoError(t, reg.AddRelationship(ctx, "t1", models.HierarchyRole, "C", "B", false))

	err := reg.AddRelationship(ctx, "t1", models.HierarchyRole, "A", "C", false)
	var verr *hier.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, hier.CodeRelationshipCyclic, verr.Code)
}

func TestRemoveRelationshipRequiresDirectEdge(t *testing.T) {
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddRelationship(ctx, "t1", models.HierarchyRole, "B", "A", false))
	require.NoError(t, reg.AddRelationship(ctx, "t1", models.HierarchyRole, "C", "B", false))

	// C reaches A only transitively
	err := reg.RemoveRelationship(ctx, "t1", models.HierarchyRole, "C", "A")
	var verr *hier.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, hier.CodeRelationshipNotFound, verr.Code)

	require.NoError(t, reg.RemoveRelationship(ctx, "t1", models.HierarchyRole, "C", "B"))
	rels, err := st.GetRelationships(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.Equal(t, []models.Relationship{{Child: "B", Parent: "A"}}, rels)
}

func TestOnHierarchyChangedRebuildsFromStore(t *testing.T) {
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddRelationship(ctx, "t1", models.HierarchyRole, "B", "A", false))
	before, err := reg.Graph(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)

	// an out-of-band write followed by the rebuild hook
	require.NoError(t, st.SetRelationships(ctx, "t1", models.HierarchyRole, []models.Relationship{
		{Child: "C", Parent: "A"},
	}))
	reg.OnHierarchyChanged(ctx, "t1", models.HierarchyRole)

	after, err := reg.Graph(ctx, "t1", models.HierarchyRole)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.False(t, after.HasEdge("B", "A"))
	assert.True(t, after.HasEdge("C", "A"))
}

func TestInheritedRolesExpandsClosure(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.AddRelationship(ctx, "t1", models.HierarchyRole, "ENGINEER", "EMPLOYEE", false))
	require.NoError(t, reg.AddRelationship(ctx, "t1", models.HierarchyRole, "LEAD", "ENGINEER", false))

	roles, err := reg.InheritedRoles(ctx, "t1", models.HierarchyRole, []string{"lead"})
	require.NoError(t, err)
	assert.Equal(t, []string{"EMPLOYEE", "ENGINEER", "LEAD"}, roles)

	// assignment outside the graph still contributes itself
	roles, err = reg.InheritedRoles(ctx, "t1", models.HierarchyRole, []string{"ORPHAN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ORPHAN"}, roles)
}

func TestCachedDirectoryServesSecondReadFromCache(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	cached := NewCachedDirectory(st, cache.NewNoopValkeyCache(logger.NewNop()), time.Minute)

	_, err := st.CreateRole(ctx, &models.Role{TenantID: "t1", Name: "auditor", Description: "v1"})
	require.NoError(t, err)

	got, err := cached.GetRole(ctx, "t1", "auditor")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Description)

	// change bypassing the wrapper; cached copy still served
	_, err = st.UpdateRole(ctx, &models.Role{TenantID: "t1", Name: "auditor", Description: "v2"})
	require.NoError(t, err)
	got, err = cached.GetRole(ctx, "t1", "auditor")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Description)

	// a write through the wrapper invalidates
	_, err = cached.UpdateRole(ctx, &models.Role{TenantID: "t1", Name: "auditor", Description: "v3"})
	require.NoError(t, err)
	got, err = cached.GetRole(ctx, "t1", "auditor")
	require.NoError(t, err)
	assert.Equal(t, "v3", got.Description)
}

func TestCachedDirectoryPropagatesNotFound(t *testing.T) {
	st := memory.New()
	cached := NewCachedDirectory(st, cache.NewNoopValkeyCache(logger.NewNop()), time.Minute)

	_, err := cached.GetUser(context.Background(), "t1", "ghost")
	assert.Error(t, err)
}
