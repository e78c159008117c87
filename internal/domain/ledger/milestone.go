package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/shared"
)

// MilestoneStatus represents the payout status of an achieved milestone
type MilestoneStatus string

const (
	// MilestoneStatusDetected means the rule matched and the milestone row
	// exists, but the reward has not been credited yet
	MilestoneStatusDetected MilestoneStatus = "DETECTED"
	// MilestoneStatusPaid means the reward transaction has been recorded
	MilestoneStatusPaid MilestoneStatus = "PAID"
)

// String returns the string representation of MilestoneStatus
func (s MilestoneStatus) String() string {
	return string(s)
}

// MilestoneRule describes a reward rule evaluated against activity counters.
// Rules are configuration, not persisted aggregates.
type MilestoneRule struct {
	ID           string
	EventType    string
	Threshold    int64
	RewardPoints int64
	Description  string
}

// Validate checks that the rule is well formed
func (r MilestoneRule) Validate() error {
	if r.ID == "" {
		return shared.NewDomainError("INVALID_RULE", "Rule ID cannot be empty")
	}
	if r.EventType == "" {
		return shared.NewDomainError("INVALID_RULE", "Rule event type cannot be empty")
	}
	if r.Threshold < 1 {
		return shared.NewDomainError("INVALID_RULE", "Rule threshold must be at least 1")
	}
	if r.RewardPoints < 1 {
		return shared.NewDomainError("INVALID_RULE", "Rule reward must be at least 1 point")
	}
	return nil
}

// Matches returns true once the counter reaches the rule threshold
func (r MilestoneRule) Matches(count int64) bool {
	return count >= r.Threshold
}

// Milestone records that a holder achieved a reward rule. The pair
// (holder, rule) is unique per tenant, which is what makes detection
// idempotent under concurrent evaluation.
type Milestone struct {
	shared.TenantAggregateRoot
	HolderID            uuid.UUID
	RuleID              string
	RewardPoints        int64
	Status              MilestoneStatus
	RewardTransactionID *uuid.UUID
	PayoutAttempts      int
	LastAttemptAt       *time.Time
	AchievedAt          time.Time
	PaidAt              *time.Time
}

// NewMilestone creates a detected, unpaid milestone for the given rule
func NewMilestone(tenantID, holderID uuid.UUID, rule MilestoneRule) (*Milestone, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if holderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_HOLDER", "Holder ID cannot be empty")
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	m := &Milestone{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		HolderID:            holderID,
		RuleID:              rule.ID,
		RewardPoints:        rule.RewardPoints,
		Status:              MilestoneStatusDetected,
		AchievedAt:          time.Now(),
	}
	m.AddDomainEvent(NewMilestoneAchievedEvent(m))
	return m, nil
}

// NaturalKey returns the uniqueness key used to deduplicate detection
func (m *Milestone) NaturalKey() string {
	return fmt.Sprintf("%s:%s:%s", m.TenantID, m.HolderID, m.RuleID)
}

// IdempotencyKey returns the ledger idempotency key for the payout entry.
// Because it is derived from the milestone ID, retried payouts collapse
// onto the same transaction.
func (m *Milestone) IdempotencyKey() string {
	return fmt.Sprintf("milestone:%s", m.ID)
}

// IsPaid returns true if the reward has been credited
func (m *Milestone) IsPaid() bool {
	return m.Status == MilestoneStatusPaid
}

// RecordPayoutAttempt bumps the attempt counter before a payout try
func (m *Milestone) RecordPayoutAttempt() {
	now := time.Now()
	m.PayoutAttempts++
	m.LastAttemptAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()
}

// MarkPaid links the milestone to the recorded reward transaction. Terminal.
func (m *Milestone) MarkPaid(rewardTransactionID uuid.UUID) error {
	if m.Status == MilestoneStatusPaid {
		return shared.ErrInvalidState
	}
	if rewardTransactionID == uuid.Nil {
		return shared.NewDomainError("INVALID_TRANSACTION", "Reward transaction ID cannot be empty")
	}

	now := time.Now()
	m.Status = MilestoneStatusPaid
	m.RewardTransactionID = &rewardTransactionID
	m.PaidAt = &now
	m.UpdatedAt = now
	m.IncrementVersion()

	m.AddDomainEvent(NewMilestonePaidEvent(m, rewardTransactionID))

	return nil
}
