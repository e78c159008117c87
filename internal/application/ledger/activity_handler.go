package ledger

import (
	"context"
	"fmt"

	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ActivityHandler consumes activity events from other bounded contexts
// (trips, referrals, savings) and feeds them into milestone evaluation.
// Re-delivered events are harmless: detection is idempotent on the
// (tenant, holder, rule) uniqueness and payouts on the milestone key.
type ActivityHandler struct {
	milestones *MilestoneService
	logger     *zap.Logger
}

// NewActivityHandler creates a handler for inbound activity events
func NewActivityHandler(milestones *MilestoneService, logger *zap.Logger) *ActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{
		milestones: milestones,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ActivityHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeTripCompleted,
		ledger.EventTypeReferralConverted,
		ledger.EventTypeSavingsGoalReached,
	}
}

// Handle evaluates reward rules for the holder named by the event
func (h *ActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	activity, ok := event.(*ledger.ActivityEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	milestone, err := h.milestones.Evaluate(ctx, EvaluateRequest{
		TenantID:  activity.TenantID(),
		HolderID:  activity.HolderID,
		EventType: activity.EventType(),
	})
	if err != nil {
		h.logger.Error("milestone evaluation failed",
			zap.String("event_type", activity.EventType()),
			zap.String("holder_id", activity.HolderID.String()),
			zap.Error(err))
		return err
	}
	if milestone != nil {
		h.logger.Info("activity event produced milestone",
			zap.String("event_type", activity.EventType()),
			zap.String("milestone_id", milestone.ID.String()))
	}
	return nil
}
