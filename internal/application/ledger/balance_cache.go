package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BalanceCache caches computed balance summaries for the hot read path.
// Implementations must treat a miss as (nil, nil) so callers can fall
// through to the ledger without branching on sentinel errors.
type BalanceCache interface {
	// Get returns the cached summary for a holder, or nil on a miss
	Get(ctx context.Context, tenantID, holderID uuid.UUID) (*BalanceSummary, error)
	// Set stores a summary with the given TTL (0 uses the implementation default)
	Set(ctx context.Context, tenantID, holderID uuid.UUID, summary *BalanceSummary, ttl time.Duration) error
	// Delete evicts a holder's cached summary
	Delete(ctx context.Context, tenantID, holderID uuid.UUID) error
	// InvalidateAll evicts every cached summary
	InvalidateAll(ctx context.Context) error
	// Close releases any resources held by the cache
	Close() error
}

// BalanceCacheConfig holds TTLs and the invalidation channel shared by
// the cache tiers.
type BalanceCacheConfig struct {
	// L1TTL bounds how stale a local in-process entry may get
	L1TTL time.Duration
	// L2TTL bounds how stale a shared Redis entry may get
	L2TTL time.Duration
	// PubSubChannel carries cross-instance eviction messages
	PubSubChannel string
}

// DefaultBalanceCacheConfig returns the default cache configuration.
// The L1 TTL is deliberately short: balances change on every booking
// and a stale local read must age out quickly even if an invalidation
// message is lost.
func DefaultBalanceCacheConfig() BalanceCacheConfig {
	return BalanceCacheConfig{
		L1TTL:         15 * time.Second,
		L2TTL:         5 * time.Minute,
		PubSubChannel: "ledger:balance:invalidation",
	}
}

// Balance invalidation actions
const (
	BalanceInvalidationEvict = "evict"
	BalanceInvalidationAll   = "invalidate_all"
)

// BalanceInvalidationMessage is broadcast over Pub/Sub when a holder's
// balance changes so other instances drop their local copies.
type BalanceInvalidationMessage struct {
	Action    string `json:"action"`
	TenantID  string `json:"tenant_id,omitempty"`
	HolderID  string `json:"holder_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
