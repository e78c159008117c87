package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appledger "github.com/voyago/backend/internal/application/ledger"
)

// Constants for Redis cache configuration
const (
	defaultScanBatchSize = 100

	balanceKeyPrefix = "ledger:balance:"
)

// RedisBalanceCache implements BalanceCache using Redis. It is the
// shared tier: every instance reads and writes the same entries.
type RedisBalanceCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	config     appledger.BalanceCacheConfig
	logger     *zap.Logger
}

// RedisBalanceCacheOption is a functional option for configuring the cache
type RedisBalanceCacheOption func(*RedisBalanceCache)

// WithBalanceCacheConfig sets the cache configuration
func WithBalanceCacheConfig(config appledger.BalanceCacheConfig) RedisBalanceCacheOption {
	return func(c *RedisBalanceCache) {
		c.config = config
	}
}

// WithBalanceCacheLogger sets the logger for the cache
func WithBalanceCacheLogger(logger *zap.Logger) RedisBalanceCacheOption {
	return func(c *RedisBalanceCache) {
		c.logger = logger
	}
}

// NewRedisBalanceCache creates a new Redis-based balance cache
func NewRedisBalanceCache(cfg RedisConfig, opts ...RedisBalanceCacheOption) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisBalanceCache{
		client:     client,
		ownsClient: true,
		config:     appledger.DefaultBalanceCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisBalanceCacheWithClient creates a cache with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisBalanceCacheWithClient(client *redis.Client, opts ...RedisBalanceCacheOption) *RedisBalanceCache {
	cache := &RedisBalanceCache{
		client:     client,
		ownsClient: false,
		config:     appledger.DefaultBalanceCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// balanceCacheKey generates the cache key for a holder's balance summary
func balanceCacheKey(tenantID, holderID uuid.UUID) string {
	return balanceKeyPrefix + tenantID.String() + ":" + holderID.String()
}

// Get retrieves a balance summary from cache
func (c *RedisBalanceCache) Get(ctx context.Context, tenantID, holderID uuid.UUID) (*appledger.BalanceSummary, error) {
	cacheKey := balanceCacheKey(tenantID, holderID)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss for balance summary",
			zap.String("tenant_id", tenantID.String()),
			zap.String("holder_id", holderID.String()))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get balance summary from cache",
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get balance from cache: %w", err)
	}

	var summary appledger.BalanceSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		c.logger.Error("Failed to unmarshal balance summary",
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, cacheKey)
		return nil, fmt.Errorf("failed to unmarshal balance: %w", err)
	}

	c.logger.Debug("Cache hit for balance summary",
		zap.String("tenant_id", tenantID.String()),
		zap.String("holder_id", holderID.String()))
	return &summary, nil
}

// Set stores a balance summary in cache
func (c *RedisBalanceCache) Set(ctx context.Context, tenantID, holderID uuid.UUID, summary *appledger.BalanceSummary, ttl time.Duration) error {
	if summary == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.config.L2TTL
	}

	cacheKey := balanceCacheKey(tenantID, holderID)

	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Error("Failed to marshal balance summary",
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to marshal balance: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set balance summary in cache",
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set balance in cache: %w", err)
	}

	c.logger.Debug("Cached balance summary",
		zap.String("tenant_id", tenantID.String()),
		zap.String("holder_id", holderID.String()),
		zap.Duration("ttl", ttl))
	return nil
}

// Delete removes a balance summary from cache
func (c *RedisBalanceCache) Delete(ctx context.Context, tenantID, holderID uuid.UUID) error {
	cacheKey := balanceCacheKey(tenantID, holderID)

	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		c.logger.Error("Failed to delete balance summary from cache",
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to delete balance from cache: %w", err)
	}

	c.logger.Debug("Deleted balance summary from cache",
		zap.String("tenant_id", tenantID.String()),
		zap.String("holder_id", holderID.String()))
	return nil
}

// InvalidateAll removes all cached balance summaries
func (c *RedisBalanceCache) InvalidateAll(ctx context.Context) error {
	// Use SCAN to find keys to avoid blocking Redis with KEYS
	var cursor uint64
	var deletedCount int64

	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, balanceKeyPrefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			c.logger.Error("Failed to scan balance cache keys", zap.Error(err))
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.logger.Error("Failed to delete balance cache keys", zap.Error(err))
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deletedCount += deleted
		}

		if cursor == 0 {
			break
		}
	}

	c.logger.Info("Invalidated all balance cache",
		zap.Int64("deleted_count", deletedCount))
	return nil
}

// Close releases any resources held by the cache
func (c *RedisBalanceCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisBalanceCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisBalanceCache implements BalanceCache
var _ appledger.BalanceCache = (*RedisBalanceCache)(nil)
