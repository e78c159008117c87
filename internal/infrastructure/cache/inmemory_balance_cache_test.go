package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appledger "github.com/voyago/backend/internal/application/ledger"
)

func newTestSummary(holderID uuid.UUID) *appledger.BalanceSummary {
	return &appledger.BalanceSummary{
		HolderID:        holderID,
		Cash:            125000,
		CreditUsed:      40000,
		CreditLimit:     100000,
		CreditAvailable: 60000,
		Points:          3200,
	}
}

func TestInMemoryBalanceCache_Get(t *testing.T) {
	cache := NewInMemoryBalanceCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	// Test cache miss
	summary, err := cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)
	assert.Nil(t, summary)

	// Set and read back
	err = cache.Set(ctx, tenantID, holderID, newTestSummary(holderID), 5*time.Second)
	require.NoError(t, err)

	summary, err = cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, holderID, summary.HolderID)
	assert.Equal(t, int64(125000), summary.Cash)
	assert.Equal(t, int64(60000), summary.CreditAvailable)
}

func TestInMemoryBalanceCache_TenantIsolation(t *testing.T) {
	cache := NewInMemoryBalanceCache()
	defer cache.Close()

	ctx := context.Background()
	holderID := uuid.New()
	tenantA := uuid.New()
	tenantB := uuid.New()

	err := cache.Set(ctx, tenantA, holderID, newTestSummary(holderID), 5*time.Second)
	require.NoError(t, err)

	// Same holder under another tenant must miss
	summary, err := cache.Get(ctx, tenantB, holderID)
	require.NoError(t, err)
	assert.Nil(t, summary)

	summary, err = cache.Get(ctx, tenantA, holderID)
	require.NoError(t, err)
	require.NotNil(t, summary)
}

func TestInMemoryBalanceCache_Set(t *testing.T) {
	cache := NewInMemoryBalanceCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	// Set nil summary (should be no-op)
	err := cache.Set(ctx, tenantID, holderID, nil, 5*time.Second)
	require.NoError(t, err)

	summary, err := cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestInMemoryBalanceCache_Delete(t *testing.T) {
	cache := NewInMemoryBalanceCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	err := cache.Set(ctx, tenantID, holderID, newTestSummary(holderID), 5*time.Second)
	require.NoError(t, err)

	err = cache.Delete(ctx, tenantID, holderID)
	require.NoError(t, err)

	summary, err := cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestInMemoryBalanceCache_Expiration(t *testing.T) {
	cache := NewInMemoryBalanceCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	// Set with very short TTL
	err := cache.Set(ctx, tenantID, holderID, newTestSummary(holderID), 50*time.Millisecond)
	require.NoError(t, err)

	summary, err := cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)
	require.NotNil(t, summary)

	// Wait for expiration
	time.Sleep(100 * time.Millisecond)

	summary, err = cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestInMemoryBalanceCache_InvalidateAll(t *testing.T) {
	cache := NewInMemoryBalanceCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()

	for i := 0; i < 3; i++ {
		holderID := uuid.New()
		err := cache.Set(ctx, tenantID, holderID, newTestSummary(holderID), 5*time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, cache.Count())

	err := cache.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Count())
}

func TestInMemoryBalanceCache_Stats(t *testing.T) {
	cache := NewInMemoryBalanceCache()
	defer cache.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	// One miss
	_, err := cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)

	err = cache.Set(ctx, tenantID, holderID, newTestSummary(holderID), 5*time.Second)
	require.NoError(t, err)

	// Two hits
	_, err = cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)
	_, err = cache.Get(ctx, tenantID, holderID)
	require.NoError(t, err)

	hits, misses := cache.GetStats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	cache.ResetStats()
	hits, misses = cache.GetStats()
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(0), misses)
}

func TestInMemoryBalanceCache_Close(t *testing.T) {
	cache := NewInMemoryBalanceCache()

	// Close should be idempotent
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
}
