package cache

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
)

// BalanceEvictionHandler evicts a holder's cached balance summary
// whenever a ledger write changes it. It subscribes to the events that
// move money or points so the next read recomputes from the ledger.
type BalanceEvictionHandler struct {
	cache  appledger.BalanceCache
	logger *zap.Logger
}

// NewBalanceEvictionHandler creates an eviction handler backed by the given cache
func NewBalanceEvictionHandler(cache appledger.BalanceCache, logger *zap.Logger) *BalanceEvictionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceEvictionHandler{
		cache:  cache,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *BalanceEvictionHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeTransactionRecorded,
		ledger.EventTypePointsExpired,
	}
}

// Handle evicts the cached balance for the holder named by the event.
// Eviction failures are logged but not returned: a stale entry ages out
// via its TTL and must not fail the ledger write that triggered it.
func (h *BalanceEvictionHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.TransactionRecordedEvent:
		h.evict(ctx, event, e.HolderID)
	case *ledger.PointsExpiredEvent:
		h.evict(ctx, event, e.HolderID)
	default:
		h.logger.Debug("Ignoring event with no balance impact",
			zap.String("event_type", event.EventType()))
	}
	return nil
}

func (h *BalanceEvictionHandler) evict(ctx context.Context, event shared.DomainEvent, holderID uuid.UUID) {
	tenantID := event.TenantID()

	if err := h.cache.Delete(ctx, tenantID, holderID); err != nil {
		h.logger.Warn("Failed to evict cached balance",
			zap.String("event_type", event.EventType()),
			zap.String("tenant_id", tenantID.String()),
			zap.String("holder_id", holderID.String()),
			zap.Error(err))
		return
	}

	h.logger.Debug("Evicted cached balance",
		zap.String("event_type", event.EventType()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("holder_id", holderID.String()))
}

// Ensure BalanceEvictionHandler implements EventHandler
var _ shared.EventHandler = (*BalanceEvictionHandler)(nil)
