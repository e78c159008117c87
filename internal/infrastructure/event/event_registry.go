package event

import (
	"github.com/voyago/backend/internal/domain/ledger"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Ledger domain events
	serializer.Register(ledger.EventTypeTransactionRecorded, &ledger.TransactionRecordedEvent{})
	serializer.Register(ledger.EventTypeMilestoneAchieved, &ledger.MilestoneAchievedEvent{})
	serializer.Register(ledger.EventTypeMilestonePaid, &ledger.MilestonePaidEvent{})
	serializer.Register(ledger.EventTypeRedemptionCancelled, &ledger.RedemptionCancelledEvent{})
	serializer.Register(ledger.EventTypePointsExpired, &ledger.PointsExpiredEvent{})

	// Inbound activity events consumed by the milestone evaluator
	serializer.Register(ledger.EventTypeTripCompleted, &ledger.ActivityEvent{})
	serializer.Register(ledger.EventTypeReferralConverted, &ledger.ActivityEvent{})
	serializer.Register(ledger.EventTypeSavingsGoalReached, &ledger.ActivityEvent{})
}
