package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appledger "github.com/voyago/backend/internal/application/ledger"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
)

// InMemoryBalanceCache implements BalanceCache using in-memory storage.
// It is designed to be used as L1 cache in front of Redis.
type InMemoryBalanceCache struct {
	entries sync.Map // map[string]*balanceEntry
	config  appledger.BalanceCacheConfig
	logger  *zap.Logger
	stopCh  chan struct{} // Channel to stop the cleanup goroutine
	stopped int32         // Atomic flag to track if cache is stopped

	// Stats for monitoring
	hits   int64
	misses int64
}

// balanceEntry wraps a cached summary with its expiration time
type balanceEntry struct {
	value     *appledger.BalanceSummary
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *balanceEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryBalanceCacheOption is a functional option for configuring the cache
type InMemoryBalanceCacheOption func(*InMemoryBalanceCache)

// WithInMemoryBalanceConfig sets the cache configuration
func WithInMemoryBalanceConfig(config appledger.BalanceCacheConfig) InMemoryBalanceCacheOption {
	return func(c *InMemoryBalanceCache) {
		c.config = config
	}
}

// WithInMemoryBalanceLogger sets the logger for the cache
func WithInMemoryBalanceLogger(logger *zap.Logger) InMemoryBalanceCacheOption {
	return func(c *InMemoryBalanceCache) {
		c.logger = logger
	}
}

// NewInMemoryBalanceCache creates a new in-memory balance cache
func NewInMemoryBalanceCache(opts ...InMemoryBalanceCacheOption) *InMemoryBalanceCache {
	cache := &InMemoryBalanceCache{
		config: appledger.DefaultBalanceCacheConfig(),
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a balance summary from cache
func (c *InMemoryBalanceCache) Get(ctx context.Context, tenantID, holderID uuid.UUID) (*appledger.BalanceSummary, error) {
	cacheKey := balanceCacheKey(tenantID, holderID)

	if value, ok := c.entries.Load(cacheKey); ok {
		entry := value.(*balanceEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("L1 cache hit for balance summary",
				zap.String("holder_id", holderID.String()))
			return entry.value, nil
		}
		// Expired, remove from cache
		c.entries.Delete(cacheKey)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("L1 cache miss for balance summary",
		zap.String("holder_id", holderID.String()))
	return nil, nil
}

// Set stores a balance summary in cache
func (c *InMemoryBalanceCache) Set(ctx context.Context, tenantID, holderID uuid.UUID, summary *appledger.BalanceSummary, ttl time.Duration) error {
	if summary == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.config.L1TTL
	}

	cacheKey := balanceCacheKey(tenantID, holderID)
	entry := &balanceEntry{
		value:     summary,
		expiresAt: time.Now().Add(ttl),
	}

	c.entries.Store(cacheKey, entry)
	c.logger.Debug("Cached balance summary in L1",
		zap.String("holder_id", holderID.String()),
		zap.Duration("ttl", ttl))
	return nil
}

// Delete removes a balance summary from cache
func (c *InMemoryBalanceCache) Delete(ctx context.Context, tenantID, holderID uuid.UUID) error {
	cacheKey := balanceCacheKey(tenantID, holderID)
	c.entries.Delete(cacheKey)
	c.logger.Debug("Deleted balance summary from L1 cache",
		zap.String("holder_id", holderID.String()))
	return nil
}

// InvalidateAll removes all cached balance summaries
func (c *InMemoryBalanceCache) InvalidateAll(ctx context.Context) error {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})

	c.logger.Info("Invalidated all L1 balance cache")
	return nil
}

// Close releases any resources held by the cache
func (c *InMemoryBalanceCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryBalanceCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// ResetStats resets the cache statistics
func (c *InMemoryBalanceCache) ResetStats() {
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Count returns the number of entries in the cache
func (c *InMemoryBalanceCache) Count() int {
	count := 0
	c.entries.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryBalanceCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in cache cleanup",
							zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

// doCleanup removes expired entries
func (c *InMemoryBalanceCache) doCleanup() {
	var removed int

	c.entries.Range(func(key, value any) bool {
		entry := value.(*balanceEntry)
		if entry.isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("Cleaned up expired L1 cache entries",
			zap.Int("removed", removed))
	}
}

// Ensure InMemoryBalanceCache implements BalanceCache
var _ appledger.BalanceCache = (*InMemoryBalanceCache)(nil)
