package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appledger "github.com/voyago/backend/internal/application/ledger"
)

// Constants for invalidator configuration
const (
	defaultCloseTimeout = 5 * time.Second
)

// RedisBalanceInvalidator broadcasts balance evictions over Redis
// Pub/Sub so every instance drops its local copy when a ledger write
// changes a holder's balance.
type RedisBalanceInvalidator struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisBalanceInvalidatorOption is a functional option for configuring the invalidator
type RedisBalanceInvalidatorOption func(*RedisBalanceInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisBalanceInvalidatorOption {
	return func(i *RedisBalanceInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) RedisBalanceInvalidatorOption {
	return func(i *RedisBalanceInvalidator) {
		i.logger = logger
	}
}

// NewRedisBalanceInvalidator creates a new Redis Pub/Sub balance invalidator
func NewRedisBalanceInvalidator(cfg RedisConfig, opts ...RedisBalanceInvalidatorOption) (*RedisBalanceInvalidator, error) {
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

	invalidator := &RedisBalanceInvalidator{
		client:     client,
		ownsClient: true,
		channel:    appledger.DefaultBalanceCacheConfig().PubSubChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator, nil
}

// NewRedisBalanceInvalidatorWithClient creates an invalidator with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisBalanceInvalidatorWithClient(client *redis.Client, opts ...RedisBalanceInvalidatorOption) *RedisBalanceInvalidator {
	invalidator := &RedisBalanceInvalidator{
		client:     client,
		ownsClient: false,
		channel:    appledger.DefaultBalanceCacheConfig().PubSubChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator
}

// Publish sends an eviction notification to all subscribers
func (i *RedisBalanceInvalidator) Publish(ctx context.Context, msg appledger.BalanceInvalidationMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		i.logger.Error("Failed to marshal balance invalidation message",
			zap.String("action", msg.Action),
			zap.Error(err))
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish balance invalidation message",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	i.logger.Debug("Published balance invalidation message",
		zap.String("action", msg.Action),
		zap.String("holder_id", msg.HolderID),
		zap.String("channel", i.channel))

	return nil
}

// PublishEvict publishes an eviction for a single holder's balance
func (i *RedisBalanceInvalidator) PublishEvict(ctx context.Context, tenantID, holderID uuid.UUID) error {
	return i.Publish(ctx, appledger.BalanceInvalidationMessage{
		Action:   appledger.BalanceInvalidationEvict,
		TenantID: tenantID.String(),
		HolderID: holderID.String(),
	})
}

// PublishInvalidateAll publishes an invalidate-all notification
func (i *RedisBalanceInvalidator) PublishInvalidateAll(ctx context.Context) error {
	return i.Publish(ctx, appledger.BalanceInvalidationMessage{
		Action: appledger.BalanceInvalidationAll,
	})
}

// Subscribe starts listening for eviction notifications.
// The callback function is invoked for each received message.
// This method should be called in a goroutine as it blocks.
func (i *RedisBalanceInvalidator) Subscribe(ctx context.Context, callback func(msg appledger.BalanceInvalidationMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	i.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	i.mu.Lock()
	i.cancelFn = cancel
	i.mu.Unlock()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	_, err := pubsub.Receive(subCtx)
	if err != nil {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	i.logger.Info("Subscribed to balance invalidation channel",
		zap.String("channel", i.channel))

	ch := pubsub.Channel()

	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Balance invalidation subscription stopped")
			i.mu.Lock()
			i.isRunning = false
			i.mu.Unlock()
			i.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Balance invalidation channel closed")
				i.mu.Lock()
				i.isRunning = false
				i.mu.Unlock()
				i.markDone()
				return nil
			}

			var evictMsg appledger.BalanceInvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &evictMsg); err != nil {
				i.logger.Error("Failed to unmarshal balance invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			i.logger.Debug("Received balance invalidation message",
				zap.String("action", evictMsg.Action),
				zap.String("holder_id", evictMsg.HolderID))

			// Call the callback in a separate goroutine to prevent blocking
			go func(m appledger.BalanceInvalidationMessage) {
				defer func() {
					if r := recover(); r != nil {
						i.logger.Error("Panic in balance invalidation callback",
							zap.Any("panic", r))
					}
				}()
				callback(m)
			}(evictMsg)
		}
	}
}

// markDone safely marks the invalidator as done
func (i *RedisBalanceInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close releases any resources held by the invalidator
func (i *RedisBalanceInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		// Wait for subscription to stop with timeout
		select {
		case <-i.doneCh:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("Timeout waiting for subscription to stop")
		}
	}

	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (i *RedisBalanceInvalidator) GetClient() *redis.Client {
	return i.client
}
