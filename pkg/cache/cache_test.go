package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/pkg/logger"
)

func TestNoopCacheRoundTrip(t *testing.T) {
	c := NewNoopValkeyCache(logger.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", time.Minute))
	b, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), b)

	require.NoError(t, c.Delete(ctx, "k1"))
	_, err = c.Get(ctx, "k1")
	assert.Error(t, err)
}

func TestNoopCacheMarshalsStructs(t *testing.T) {
	c := NewNoopValkeyCache(logger.NewNop())
	ctx := context.Background()

	role := &models.Role{Name: "AUDITOR", TenantID: "t1"}
	require.NoError(t, c.Set(ctx, "role:t1:AUDITOR", role, 0))

	b, err := c.Get(ctx, "role:t1:AUDITOR")
	require.NoError(t, err)
	assert.Contains(t, string(b), `"AUDITOR"`)
}

func TestNoopCacheDeleteByPrefix(t *testing.T) {
	c := NewNoopValkeyCache(logger.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "sod:t1:A", "x", 0))
	require.NoError(t, c.Set(ctx, "sod:t1:B", "y", 0))
	require.NoError(t, c.Set(ctx, "role:t1:A", "z", 0))

	require.NoError(t, c.DeleteByPrefix(ctx, "sod:t1:"))

	_, err := c.Get(ctx, "sod:t1:A")
	assert.Error(t, err)
	_, err = c.Get(ctx, "sod:t1:B")
	assert.Error(t, err)
	_, err = c.Get(ctx, "role:t1:A")
	assert.NoError(t, err)
}

func TestNoopCacheSessions(t *testing.T) {
	c := NewNoopValkeyCache(logger.NewNop())
	ctx := context.Background()

	session := &models.Session{
		ID:       "s-1",
		TenantID: "t1",
		UserID:   "ALICE",
		Roles:    []models.UserRole{{Name: "CASHIER"}},
	}
	require.NoError(t, c.SetSession(ctx, session))
	assert.False(t, session.LastAccessAt.IsZero())

	got, err := c.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "ALICE", got.UserID)
	assert.Equal(t, []string{"CASHIER"}, got.ActiveRoleNames())

	require.NoError(t, c.InvalidateSession(ctx, "s-1"))
	_, err = c.GetSession(ctx, "s-1")
	assert.Error(t, err)
}

func TestNoopCacheHealthCheckReportsDegraded(t *testing.T) {
	c := NewNoopValkeyCache(logger.NewNop())
	assert.Error(t, c.HealthCheck(context.Background()))
}
