package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
)

// AccountModel is the persistence model for the Account aggregate.
// The pair (tenant, holder, kind) is unique: a holder owns at most one
// account of each kind per tenant.
type AccountModel struct {
	AggregateModel
	TenantID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_holder_kind,priority:1"`
	HolderID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_holder_kind,priority:2"`
	Kind        ledger.AccountKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_accounts_holder_kind,priority:3"`
	Balance     int64              `gorm:"not null;default:0"`
	CreditLimit int64              `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "ledger_accounts"
}

// ToDomain converts the persistence model to a domain Account aggregate.
func (m *AccountModel) ToDomain() *ledger.Account {
	account := &ledger.Account{
		HolderID:    m.HolderID,
		Kind:        m.Kind,
		Balance:     m.Balance,
		CreditLimit: m.CreditLimit,
	}
	account.ID = m.ID
	account.CreatedAt = m.CreatedAt
	account.UpdatedAt = m.UpdatedAt
	account.Version = m.Version
	account.TenantID = m.TenantID
	return account
}

// FromDomain populates the persistence model from a domain Account aggregate.
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.TenantID = a.TenantID
	m.HolderID = a.HolderID
	m.Kind = a.Kind
	m.Balance = a.Balance
	m.CreditLimit = a.CreditLimit
}

// AccountModelFromDomain creates a new persistence model from a domain Account aggregate.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// TransactionModel is the persistence model for the append-only Transaction
// entity. Rows are only ever inserted. The unique index on
// (account_id, idempotency_key) is the storage-level idempotency guard;
// NULL keys never collide.
type TransactionModel struct {
	BaseModel
	TenantID       uuid.UUID              `gorm:"type:uuid;not null;index:idx_ledger_tx_tenant"`
	AccountID      uuid.UUID              `gorm:"type:uuid;not null;index:idx_ledger_tx_account;uniqueIndex:idx_ledger_tx_idem,priority:1"`
	Kind           ledger.TransactionKind `gorm:"type:varchar(20);not null"`
	Amount         int64                  `gorm:"not null"`
	BalanceAfter   int64                  `gorm:"not null"`
	SourceType     ledger.SourceType      `gorm:"type:varchar(30);not null;index:idx_ledger_tx_source"`
	SourceID       string                 `gorm:"type:varchar(100);index:idx_ledger_tx_source"`
	IdempotencyKey *string                `gorm:"type:varchar(200);uniqueIndex:idx_ledger_tx_idem,priority:2"`
	Reason         string                 `gorm:"type:varchar(500)"`
	Metadata       string                 `gorm:"type:text"`
	RecordedAt     time.Time              `gorm:"type:timestamptz;not null;index:idx_ledger_tx_recorded"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "ledger_transactions"
}

// ToDomain converts the persistence model to a domain Transaction entity.
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:       m.TenantID,
		AccountID:      m.AccountID,
		Kind:           m.Kind,
		Amount:         m.Amount,
		BalanceAfter:   m.BalanceAfter,
		SourceType:     m.SourceType,
		SourceID:       m.SourceID,
		IdempotencyKey: m.IdempotencyKey,
		Reason:         m.Reason,
		Metadata:       m.Metadata,
		RecordedAt:     m.RecordedAt,
	}
}

// FromDomain populates the persistence model from a domain Transaction entity.
func (m *TransactionModel) FromDomain(t *ledger.Transaction) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.TenantID = t.TenantID
	m.AccountID = t.AccountID
	m.Kind = t.Kind
	m.Amount = t.Amount
	m.BalanceAfter = t.BalanceAfter
	m.SourceType = t.SourceType
	m.SourceID = t.SourceID
	m.IdempotencyKey = t.IdempotencyKey
	m.Reason = t.Reason
	m.Metadata = t.Metadata
	m.RecordedAt = t.RecordedAt
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction entity.
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(t)
	return m
}

// MilestoneModel is the persistence model for the Milestone aggregate.
// The unique index on (tenant_id, holder_id, rule_id) makes detection
// idempotent under concurrent evaluation.
type MilestoneModel struct {
	AggregateModel
	TenantID            uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_milestones_holder_rule,priority:1"`
	HolderID            uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_milestones_holder_rule,priority:2"`
	RuleID              string                 `gorm:"type:varchar(100);not null;uniqueIndex:idx_milestones_holder_rule,priority:3"`
	RewardPoints        int64                  `gorm:"not null"`
	Status              ledger.MilestoneStatus `gorm:"type:varchar(20);not null;index:idx_milestones_status"`
	RewardTransactionID *uuid.UUID             `gorm:"type:uuid"`
	PayoutAttempts      int                    `gorm:"not null;default:0"`
	LastAttemptAt       *time.Time             `gorm:"type:timestamptz"`
	AchievedAt          time.Time              `gorm:"type:timestamptz;not null"`
	PaidAt              *time.Time             `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (MilestoneModel) TableName() string {
	return "ledger_milestones"
}

// ToDomain converts the persistence model to a domain Milestone aggregate.
func (m *MilestoneModel) ToDomain() *ledger.Milestone {
	milestone := &ledger.Milestone{
		HolderID:            m.HolderID,
		RuleID:              m.RuleID,
		RewardPoints:        m.RewardPoints,
		Status:              m.Status,
		RewardTransactionID: m.RewardTransactionID,
		PayoutAttempts:      m.PayoutAttempts,
		LastAttemptAt:       m.LastAttemptAt,
		AchievedAt:          m.AchievedAt,
		PaidAt:              m.PaidAt,
	}
	milestone.ID = m.ID
	milestone.CreatedAt = m.CreatedAt
	milestone.UpdatedAt = m.UpdatedAt
	milestone.Version = m.Version
	milestone.TenantID = m.TenantID
	return milestone
}

// FromDomain populates the persistence model from a domain Milestone aggregate.
func (m *MilestoneModel) FromDomain(milestone *ledger.Milestone) {
	m.FromDomainAggregateRoot(milestone.BaseAggregateRoot)
	m.TenantID = milestone.TenantID
	m.HolderID = milestone.HolderID
	m.RuleID = milestone.RuleID
	m.RewardPoints = milestone.RewardPoints
	m.Status = milestone.Status
	m.RewardTransactionID = milestone.RewardTransactionID
	m.PayoutAttempts = milestone.PayoutAttempts
	m.LastAttemptAt = milestone.LastAttemptAt
	m.AchievedAt = milestone.AchievedAt
	m.PaidAt = milestone.PaidAt
}

// MilestoneModelFromDomain creates a new persistence model from a domain Milestone aggregate.
func MilestoneModelFromDomain(milestone *ledger.Milestone) *MilestoneModel {
	m := &MilestoneModel{}
	m.FromDomain(milestone)
	return m
}

// RedemptionModel is the persistence model for the Redemption aggregate.
type RedemptionModel struct {
	AggregateModel
	TenantID       uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_redemptions_booking,priority:1"`
	HolderID       uuid.UUID               `gorm:"type:uuid;not null;index:idx_redemptions_holder"`
	BookingID      string                  `gorm:"type:varchar(100);not null;uniqueIndex:idx_redemptions_booking,priority:2"`
	PointsSpent    int64                   `gorm:"not null"`
	DiscountAmount int64                   `gorm:"not null"`
	Status         ledger.RedemptionStatus `gorm:"type:varchar(20);not null;index:idx_redemptions_status"`
	CancelReason   string                  `gorm:"type:varchar(500)"`
	CompletedAt    *time.Time              `gorm:"type:timestamptz"`
	CancelledAt    *time.Time              `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (RedemptionModel) TableName() string {
	return "ledger_redemptions"
}

// ToDomain converts the persistence model to a domain Redemption aggregate.
func (m *RedemptionModel) ToDomain() *ledger.Redemption {
	redemption := &ledger.Redemption{
		HolderID:       m.HolderID,
		BookingID:      m.BookingID,
		PointsSpent:    m.PointsSpent,
		DiscountAmount: m.DiscountAmount,
		Status:         m.Status,
		CancelReason:   m.CancelReason,
		CompletedAt:    m.CompletedAt,
		CancelledAt:    m.CancelledAt,
	}
	redemption.ID = m.ID
	redemption.CreatedAt = m.CreatedAt
	redemption.UpdatedAt = m.UpdatedAt
	redemption.Version = m.Version
	redemption.TenantID = m.TenantID
	return redemption
}

// FromDomain populates the persistence model from a domain Redemption aggregate.
func (m *RedemptionModel) FromDomain(r *ledger.Redemption) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.TenantID = r.TenantID
	m.HolderID = r.HolderID
	m.BookingID = r.BookingID
	m.PointsSpent = r.PointsSpent
	m.DiscountAmount = r.DiscountAmount
	m.Status = r.Status
	m.CancelReason = r.CancelReason
	m.CompletedAt = r.CompletedAt
	m.CancelledAt = r.CancelledAt
}

// RedemptionModelFromDomain creates a new persistence model from a domain Redemption aggregate.
func RedemptionModelFromDomain(r *ledger.Redemption) *RedemptionModel {
	m := &RedemptionModel{}
	m.FromDomain(r)
	return m
}
