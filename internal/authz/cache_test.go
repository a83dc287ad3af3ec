package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mealbridge/mealbridge/internal/catalog"
)

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, hit)

	perms := []catalog.Permission{catalog.PermRolesView, catalog.PermRolesEdit}
	require.NoError(t, cache.Put(ctx, 1, perms))

	got, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, perms, got)
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, 1, []catalog.Permission{catalog.PermAuditView}))
	require.NoError(t, cache.Invalidate(ctx, 1))

	_, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestBumpGenerationOrphansAllEntries(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, 1, []catalog.Permission{catalog.PermAuditView}))
	require.NoError(t, cache.Put(ctx, 2, []catalog.Permission{catalog.PermRolesView}))

	require.NoError(t, cache.BumpGeneration(ctx))

	for _, userID := range []int64{1, 2} {
		_, hit, err := cache.Get(ctx, userID)
		require.NoError(t, err)
		require.False(t, hit)
	}
}

func TestTTLExpiry(t *testing.T) {
	cache, mr := newTestCache(t, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, 1, []catalog.Permission{catalog.PermAuditView}))
	mr.FastForward(6 * time.Second)

	_, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestSweepRemovesStaleGenerations(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, 1, []catalog.Permission{catalog.PermAuditView}))
	require.NoError(t, cache.Put(ctx, 2, []catalog.Permission{catalog.PermRolesView}))
	require.NoError(t, cache.BumpGeneration(ctx))
	require.NoError(t, cache.Put(ctx, 3, []catalog.Permission{catalog.PermUsersView}))

	removed, err := cache.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	// The current-generation entry survives the sweep.
	_, hit, err := cache.Get(ctx, 3)
	require.NoError(t, err)
	require.True(t, hit)
}

func TestNilClientDegradesToMiss(t *testing.T) {
	cache := NewDecisionCache(nil, time.Minute)
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.Put(ctx, 1, nil))
	require.NoError(t, cache.Invalidate(ctx, 1))
	require.NoError(t, cache.BumpGeneration(ctx))
}
