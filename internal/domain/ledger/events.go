package ledger

import (
	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/shared"
)

// Event types produced by the ledger aggregates
const (
	EventTypeTransactionRecorded = "ledger.transaction.recorded"
	EventTypeMilestoneAchieved   = "ledger.milestone.achieved"
	EventTypeMilestonePaid       = "ledger.milestone.paid"
	EventTypeRedemptionCancelled = "ledger.redemption.cancelled"
	EventTypePointsExpired       = "ledger.points.expired"
)

// Event types consumed by the milestone evaluator. They are published by
// other bounded contexts and carry the activity counters the reward rules
// are evaluated against.
const (
	EventTypeTripCompleted      = "trip.completed"
	EventTypeReferralConverted  = "referral.converted"
	EventTypeSavingsGoalReached = "savings.goal.reached"
)

// TransactionRecordedEvent is raised whenever a ledger entry is appended
type TransactionRecordedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	HolderID      uuid.UUID       `json:"holder_id"`
	AccountKind   AccountKind     `json:"account_kind"`
	Kind          TransactionKind `json:"kind"`
	Amount        int64           `json:"amount"`
	BalanceAfter  int64           `json:"balance_after"`
	SourceType    SourceType      `json:"source_type"`
	SourceID      string          `json:"source_id"`
}

// NewTransactionRecordedEvent creates a transaction recorded event
func NewTransactionRecordedEvent(a *Account, t *Transaction) *TransactionRecordedEvent {
	return &TransactionRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionRecorded, "Account", a.ID, a.TenantID),
		TransactionID:   t.ID,
		AccountID:       a.ID,
		HolderID:        a.HolderID,
		AccountKind:     a.Kind,
		Kind:            t.Kind,
		Amount:          t.Amount,
		BalanceAfter:    t.BalanceAfter,
		SourceType:      t.SourceType,
		SourceID:        t.SourceID,
	}
}

// MilestoneAchievedEvent is raised when a reward rule first matches, before
// the payout transaction has been recorded
type MilestoneAchievedEvent struct {
	shared.BaseDomainEvent
	MilestoneID  uuid.UUID `json:"milestone_id"`
	HolderID     uuid.UUID `json:"holder_id"`
	RuleID       string    `json:"rule_id"`
	RewardPoints int64     `json:"reward_points"`
}

// NewMilestoneAchievedEvent creates a milestone achieved event
func NewMilestoneAchievedEvent(m *Milestone) *MilestoneAchievedEvent {
	return &MilestoneAchievedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMilestoneAchieved, "Milestone", m.ID, m.TenantID),
		MilestoneID:     m.ID,
		HolderID:        m.HolderID,
		RuleID:          m.RuleID,
		RewardPoints:    m.RewardPoints,
	}
}

// MilestonePaidEvent is raised when the reward points for a milestone have
// been credited to the holder's points account
type MilestonePaidEvent struct {
	shared.BaseDomainEvent
	MilestoneID         uuid.UUID `json:"milestone_id"`
	HolderID            uuid.UUID `json:"holder_id"`
	RuleID              string    `json:"rule_id"`
	RewardPoints        int64     `json:"reward_points"`
	RewardTransactionID uuid.UUID `json:"reward_transaction_id"`
}

// NewMilestonePaidEvent creates a milestone paid event
func NewMilestonePaidEvent(m *Milestone, rewardTransactionID uuid.UUID) *MilestonePaidEvent {
	return &MilestonePaidEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeMilestonePaid, "Milestone", m.ID, m.TenantID),
		MilestoneID:         m.ID,
		HolderID:            m.HolderID,
		RuleID:              m.RuleID,
		RewardPoints:        m.RewardPoints,
		RewardTransactionID: rewardTransactionID,
	}
}

// RedemptionCancelledEvent is raised when a pending redemption is cancelled
type RedemptionCancelledEvent struct {
	shared.BaseDomainEvent
	RedemptionID uuid.UUID `json:"redemption_id"`
	HolderID     uuid.UUID `json:"holder_id"`
	BookingID    string    `json:"booking_id"`
	PointsSpent  int64     `json:"points_spent"`
	Reason       string    `json:"reason"`
}

// NewRedemptionCancelledEvent creates a redemption cancelled event
func NewRedemptionCancelledEvent(r *Redemption) *RedemptionCancelledEvent {
	return &RedemptionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRedemptionCancelled, "Redemption", r.ID, r.TenantID),
		RedemptionID:    r.ID,
		HolderID:        r.HolderID,
		BookingID:       r.BookingID,
		PointsSpent:     r.PointsSpent,
		Reason:          r.CancelReason,
	}
}

// PointsExpiredEvent is raised when the expiry sweep removes aged points
// from an account
type PointsExpiredEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID `json:"account_id"`
	HolderID      uuid.UUID `json:"holder_id"`
	ExpiredPoints int64     `json:"expired_points"`
	Period        string    `json:"period"`
}

// NewPointsExpiredEvent creates a points expired event
func NewPointsExpiredEvent(a *Account, expiredPoints int64, period string) *PointsExpiredEvent {
	return &PointsExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePointsExpired, "Account", a.ID, a.TenantID),
		AccountID:       a.ID,
		HolderID:        a.HolderID,
		ExpiredPoints:   expiredPoints,
		Period:          period,
	}
}

// ActivityEvent is the shape of inbound events the milestone evaluator
// consumes. The producing contexts serialize to this payload.
type ActivityEvent struct {
	shared.BaseDomainEvent
	HolderID uuid.UUID `json:"holder_id"`
}

// NewActivityEvent creates an inbound activity event of the given type
func NewActivityEvent(eventType string, tenantID, holderID uuid.UUID) *ActivityEvent {
	return &ActivityEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Holder", holderID, tenantID),
		HolderID:        holderID,
	}
}
