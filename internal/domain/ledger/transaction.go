package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/shared"
)

// TransactionKind represents the type of ledger transaction
type TransactionKind string

const (
	// TransactionKindEarn represents points awarded to a points account (balance increase)
	TransactionKindEarn TransactionKind = "EARN"
	// TransactionKindRedeem represents points converted into a booking discount (balance decrease)
	TransactionKindRedeem TransactionKind = "REDEEM"
	// TransactionKindDebit represents cash leaving a wallet (balance decrease)
	TransactionKindDebit TransactionKind = "DEBIT"
	// TransactionKindCredit represents cash entering a wallet, or a draw on the
	// revolving credit line when applied to a credit account (balance increase)
	TransactionKindCredit TransactionKind = "CREDIT"
	// TransactionKindRepayment represents a repayment reducing the used credit (balance decrease)
	TransactionKindRepayment TransactionKind = "REPAYMENT"
	// TransactionKindExpiry represents points expired by the retention policy (balance decrease)
	TransactionKindExpiry TransactionKind = "EXPIRY"
	// TransactionKindRefund represents a compensating credit back to a wallet (balance increase)
	TransactionKindRefund TransactionKind = "REFUND"
)

// String returns the string representation of TransactionKind
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid returns true if the transaction kind is valid
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindEarn,
		TransactionKindRedeem,
		TransactionKindDebit,
		TransactionKindCredit,
		TransactionKindRepayment,
		TransactionKindExpiry,
		TransactionKindRefund:
		return true
	}
	return false
}

// IsIncrease returns true if this kind increases the account balance
func (k TransactionKind) IsIncrease() bool {
	switch k {
	case TransactionKindEarn, TransactionKindCredit, TransactionKindRefund:
		return true
	}
	return false
}

// IsDecrease returns true if this kind decreases the account balance
func (k TransactionKind) IsDecrease() bool {
	switch k {
	case TransactionKindRedeem, TransactionKindDebit, TransactionKindRepayment, TransactionKindExpiry:
		return true
	}
	return false
}

// SourceType represents the originating document or trigger of a transaction
type SourceType string

const (
	// SourceTypeBooking represents a wallet debit raised by a booking checkout
	SourceTypeBooking SourceType = "booking"
	// SourceTypeTripPayment represents points earned from a paid trip
	SourceTypeTripPayment SourceType = "trip_payment"
	// SourceTypeMilestone represents a milestone reward payout
	SourceTypeMilestone SourceType = "milestone"
	// SourceTypeReferral represents points earned from a converted referral
	SourceTypeReferral SourceType = "referral"
	// SourceTypeCommission represents a commission settlement credited to a wallet
	SourceTypeCommission SourceType = "commission"
	// SourceTypeRedemption represents a points redemption against a booking
	SourceTypeRedemption SourceType = "redemption"
	// SourceTypeRedemptionCancel represents the compensating entry of a cancelled redemption
	SourceTypeRedemptionCancel SourceType = "redemption_cancellation"
	// SourceTypeExpirySweep represents a system-initiated points expiry
	SourceTypeExpirySweep SourceType = "expiry_sweep"
	// SourceTypeManual represents a manual operation (e.g. a counter repayment)
	SourceTypeManual SourceType = "manual"
)

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeBooking,
		SourceTypeTripPayment,
		SourceTypeMilestone,
		SourceTypeReferral,
		SourceTypeCommission,
		SourceTypeRedemption,
		SourceTypeRedemptionCancel,
		SourceTypeExpirySweep,
		SourceTypeManual:
		return true
	}
	return false
}

// DeriveIdempotencyKey builds the deterministic idempotency key for an external
// source document, e.g. "trip_payment:trip-42" or "milestone:<uuid>".
func DeriveIdempotencyKey(sourceType SourceType, sourceID string) string {
	return fmt.Sprintf("%s:%s", sourceType, sourceID)
}

// Transaction is an immutable, append-only ledger entry. Once created it is
// never modified - corrections are made with new compensating transactions.
// The account balance is derived from the sum of its transactions; uniqueness
// of (account_id, idempotency_key) is enforced by the storage layer, not by a
// pre-read.
type Transaction struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	AccountID      uuid.UUID
	Kind           TransactionKind
	Amount         int64 // signed, minor currency units or points
	BalanceAfter   int64 // account balance after applying this entry
	SourceType     SourceType
	SourceID       string
	IdempotencyKey *string
	Reason         string
	Metadata       string // optional JSON payload supplied by the caller
	RecordedAt     time.Time
}

// NewTransaction creates a new ledger transaction. The amount is signed: its
// sign must match the direction of the kind.
func NewTransaction(
	tenantID uuid.UUID,
	accountID uuid.UUID,
	kind TransactionKind,
	amount int64,
	sourceType SourceType,
	sourceID string,
) (*Transaction, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if accountID == uuid.Nil {
		return nil, ErrAccountNotFound
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_KIND", "Invalid ledger transaction kind")
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if kind.IsIncrease() && amount < 0 {
		return nil, ErrInvalidAmount
	}
	if kind.IsDecrease() && amount > 0 {
		return nil, ErrInvalidAmount
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid transaction source type")
	}

	return &Transaction{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		AccountID:  accountID,
		Kind:       kind,
		Amount:     amount,
		SourceType: sourceType,
		SourceID:   sourceID,
		RecordedAt: time.Now(),
	}, nil
}

// WithIdempotencyKey sets an explicit idempotency key
func (t *Transaction) WithIdempotencyKey(key string) *Transaction {
	t.IdempotencyKey = &key
	return t
}

// WithDerivedIdempotencyKey derives the key from the source reference
func (t *Transaction) WithDerivedIdempotencyKey() *Transaction {
	key := DeriveIdempotencyKey(t.SourceType, t.SourceID)
	t.IdempotencyKey = &key
	return t
}

// WithReason sets the human-readable reason for the transaction
func (t *Transaction) WithReason(reason string) *Transaction {
	t.Reason = reason
	return t
}

// WithMetadata attaches an opaque metadata payload
func (t *Transaction) WithMetadata(metadata string) *Transaction {
	t.Metadata = metadata
	return t
}

// HasIdempotencyKey returns true if an idempotency key is set
func (t *Transaction) HasIdempotencyKey() bool {
	return t.IdempotencyKey != nil && *t.IdempotencyKey != ""
}

// Matches reports whether a replayed request carries the same payload as this
// transaction. A key collision with a different payload is a caller bug.
func (t *Transaction) Matches(kind TransactionKind, amount int64) bool {
	return t.Kind == kind && t.Amount == amount
}
