package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appledger "github.com/voyago/backend/internal/application/ledger"
)

// TieredBalanceCache implements a two-tier caching strategy
// L1: Local in-memory cache (fast, but local to instance)
// L2: Redis cache (slower, but shared across instances)
// Writes go to both tiers and broadcast an eviction so other instances
// drop their stale L1 copy.
type TieredBalanceCache struct {
	l1Cache     *InMemoryBalanceCache
	l2Cache     *RedisBalanceCache
	invalidator *RedisBalanceInvalidator
	config      appledger.BalanceCacheConfig
	logger      *zap.Logger

	// Stats for monitoring
	l1Hits   int64
	l1Misses int64
	l2Hits   int64
	l2Misses int64
}

// TieredBalanceCacheOption is a functional option for configuring the cache
type TieredBalanceCacheOption func(*TieredBalanceCache)

// WithTieredConfig sets the cache configuration
func WithTieredConfig(config appledger.BalanceCacheConfig) TieredBalanceCacheOption {
	return func(c *TieredBalanceCache) {
		c.config = config
	}
}

// WithTieredLogger sets the logger for the cache
func WithTieredLogger(logger *zap.Logger) TieredBalanceCacheOption {
	return func(c *TieredBalanceCache) {
		c.logger = logger
	}
}

// NewTieredBalanceCache creates a new tiered balance cache
func NewTieredBalanceCache(
	l1Cache *InMemoryBalanceCache,
	l2Cache *RedisBalanceCache,
	invalidator *RedisBalanceInvalidator,
	opts ...TieredBalanceCacheOption,
) *TieredBalanceCache {
	cache := &TieredBalanceCache{
		l1Cache:     l1Cache,
		l2Cache:     l2Cache,
		invalidator: invalidator,
		config:      appledger.DefaultBalanceCacheConfig(),
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// StartInvalidationSubscription starts listening for eviction messages.
// This should be called after creating the cache, typically in a goroutine.
func (c *TieredBalanceCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}

	return c.invalidator.Subscribe(ctx, func(msg appledger.BalanceInvalidationMessage) {
		c.handleInvalidationMessage(msg)
	})
}

// handleInvalidationMessage processes eviction messages from other instances
func (c *TieredBalanceCache) handleInvalidationMessage(msg appledger.BalanceInvalidationMessage) {
	ctx := context.Background()

	switch msg.Action {
	case appledger.BalanceInvalidationEvict:
		tenantID, err := uuid.Parse(msg.TenantID)
		if err != nil {
			c.logger.Error("Failed to parse tenant ID in invalidation message",
				zap.String("tenant_id", msg.TenantID),
				zap.Error(err))
			return
		}
		holderID, err := uuid.Parse(msg.HolderID)
		if err != nil {
			c.logger.Error("Failed to parse holder ID in invalidation message",
				zap.String("holder_id", msg.HolderID),
				zap.Error(err))
			return
		}
		if err := c.l1Cache.Delete(ctx, tenantID, holderID); err != nil {
			c.logger.Error("Failed to evict balance from L1 cache",
				zap.String("holder_id", msg.HolderID),
				zap.Error(err))
		}
		c.logger.Debug("Evicted balance from L1 cache",
			zap.String("tenant_id", msg.TenantID),
			zap.String("holder_id", msg.HolderID))

	case appledger.BalanceInvalidationAll:
		if err := c.l1Cache.InvalidateAll(ctx); err != nil {
			c.logger.Error("Failed to invalidate all L1 cache", zap.Error(err))
		}
		c.logger.Info("Invalidated all L1 balance cache")
	}
}

// Get retrieves a balance summary from cache (L1 -> L2)
func (c *TieredBalanceCache) Get(ctx context.Context, tenantID, holderID uuid.UUID) (*appledger.BalanceSummary, error) {
	// Try L1 first
	summary, err := c.l1Cache.Get(ctx, tenantID, holderID)
	if err != nil {
		c.logger.Warn("L1 cache error",
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
	}
	if summary != nil {
		atomic.AddInt64(&c.l1Hits, 1)
		return summary, nil
	}
	atomic.AddInt64(&c.l1Misses, 1)

	// Try L2
	summary, err = c.l2Cache.Get(ctx, tenantID, holderID)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		atomic.AddInt64(&c.l2Hits, 1)
		// Populate L1 cache
		if err := c.l1Cache.Set(ctx, tenantID, holderID, summary, c.config.L1TTL); err != nil {
			c.logger.Warn("Failed to populate L1 cache",
				zap.String("holder_id", holderID.String()),
				zap.Error(err))
		}
		return summary, nil
	}
	atomic.AddInt64(&c.l2Misses, 1)

	return nil, nil
}

// Set stores a balance summary in both tiers
func (c *TieredBalanceCache) Set(ctx context.Context, tenantID, holderID uuid.UUID, summary *appledger.BalanceSummary, ttl time.Duration) error {
	// Set in L2
	if err := c.l2Cache.Set(ctx, tenantID, holderID, summary, ttl); err != nil {
		return err
	}

	// Also set in L1 for immediate local access
	if err := c.l1Cache.Set(ctx, tenantID, holderID, summary, c.config.L1TTL); err != nil {
		c.logger.Warn("Failed to set L1 cache",
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
	}

	return nil
}

// Delete removes a balance summary from both tiers and broadcasts the
// eviction so other instances drop their L1 copy
func (c *TieredBalanceCache) Delete(ctx context.Context, tenantID, holderID uuid.UUID) error {
	// Delete from L2
	if err := c.l2Cache.Delete(ctx, tenantID, holderID); err != nil {
		return err
	}

	// Delete from L1
	if err := c.l1Cache.Delete(ctx, tenantID, holderID); err != nil {
		c.logger.Warn("Failed to delete from L1 cache",
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
	}

	// Publish eviction for other instances
	if c.invalidator != nil {
		if err := c.invalidator.PublishEvict(ctx, tenantID, holderID); err != nil {
			c.logger.Warn("Failed to publish balance eviction",
				zap.String("holder_id", holderID.String()),
				zap.Error(err))
		}
	}

	return nil
}

// InvalidateAll removes all cached balance summaries from both tiers
func (c *TieredBalanceCache) InvalidateAll(ctx context.Context) error {
	// Invalidate L2
	if err := c.l2Cache.InvalidateAll(ctx); err != nil {
		return err
	}

	// Invalidate L1
	if err := c.l1Cache.InvalidateAll(ctx); err != nil {
		c.logger.Warn("Failed to invalidate L1 cache", zap.Error(err))
	}

	// Publish invalidation for other instances
	if c.invalidator != nil {
		if err := c.invalidator.PublishInvalidateAll(ctx); err != nil {
			c.logger.Warn("Failed to publish invalidate all", zap.Error(err))
		}
	}

	return nil
}

// Close releases any resources held by the cache
func (c *TieredBalanceCache) Close() error {
	var lastErr error

	if c.invalidator != nil {
		if err := c.invalidator.Close(); err != nil {
			lastErr = err
		}
	}

	if err := c.l2Cache.Close(); err != nil {
		lastErr = err
	}

	if err := c.l1Cache.Close(); err != nil {
		lastErr = err
	}

	return lastErr
}

// GetCacheStats returns hit and miss counters for both tiers
func (c *TieredBalanceCache) GetCacheStats() (l1Hits, l1Misses, l2Hits, l2Misses int64) {
	return atomic.LoadInt64(&c.l1Hits),
		atomic.LoadInt64(&c.l1Misses),
		atomic.LoadInt64(&c.l2Hits),
		atomic.LoadInt64(&c.l2Misses)
}

// ResetStats resets the cache statistics
func (c *TieredBalanceCache) ResetStats() {
	atomic.StoreInt64(&c.l1Hits, 0)
	atomic.StoreInt64(&c.l1Misses, 0)
	atomic.StoreInt64(&c.l2Hits, 0)
	atomic.StoreInt64(&c.l2Misses, 0)
	c.l1Cache.ResetStats()
}

// Ensure TieredBalanceCache implements BalanceCache
var _ appledger.BalanceCache = (*TieredBalanceCache)(nil)
