package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/shared"
)

// RedemptionStatus represents the lifecycle status of a points redemption
type RedemptionStatus string

const (
	// RedemptionStatusPending means the discount has been reserved but fulfillment
	// has not been confirmed by the booking subsystem
	RedemptionStatusPending RedemptionStatus = "PENDING"
	// RedemptionStatusCompleted is terminal; the discount was applied
	RedemptionStatusCompleted RedemptionStatus = "COMPLETED"
	// RedemptionStatusCancelled is terminal; the points were returned by a
	// compensating transaction
	RedemptionStatusCancelled RedemptionStatus = "CANCELLED"
)

// String returns the string representation of RedemptionStatus
func (s RedemptionStatus) String() string {
	return string(s)
}

// IsValid returns true if the redemption status is valid
func (s RedemptionStatus) IsValid() bool {
	switch s {
	case RedemptionStatusPending, RedemptionStatusCompleted, RedemptionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transition is allowed from this status
func (s RedemptionStatus) IsTerminal() bool {
	return s == RedemptionStatusCompleted || s == RedemptionStatusCancelled
}

// Redemption represents a conversion of points into a booking discount.
// The point deduction itself lives in the transaction log; this aggregate
// tracks the fulfillment lifecycle. Cancellation never deletes the original
// REDEEM entry - it records a compensating EARN instead.
type Redemption struct {
	shared.TenantAggregateRoot
	HolderID       uuid.UUID
	BookingID      string
	PointsSpent    int64
	DiscountAmount int64 // minor currency units, derived from the configured rate
	Status         RedemptionStatus
	CancelReason   string
	CompletedAt    *time.Time
	CancelledAt    *time.Time
}

// NewRedemption creates a pending redemption
func NewRedemption(tenantID, holderID uuid.UUID, bookingID string, pointsSpent, discountAmount int64) (*Redemption, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if holderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_HOLDER", "Holder ID cannot be empty")
	}
	if bookingID == "" {
		return nil, shared.NewDomainError("INVALID_BOOKING", "Booking ID cannot be empty")
	}
	if pointsSpent < 1 {
		return nil, ErrInvalidAmount
	}
	if discountAmount < 0 {
		return nil, ErrInvalidAmount
	}

	return &Redemption{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		HolderID:            holderID,
		BookingID:           bookingID,
		PointsSpent:         pointsSpent,
		DiscountAmount:      discountAmount,
		Status:              RedemptionStatusPending,
	}, nil
}

// IsPending returns true while the redemption can still transition
func (r *Redemption) IsPending() bool {
	return r.Status == RedemptionStatusPending
}

// Complete marks the redemption as fulfilled. Terminal.
func (r *Redemption) Complete() error {
	if r.Status != RedemptionStatusPending {
		return shared.ErrInvalidState
	}

	now := time.Now()
	r.Status = RedemptionStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Cancel marks the redemption as cancelled. Terminal. The caller is responsible
// for recording the compensating EARN transaction in the same atomic unit.
func (r *Redemption) Cancel(reason string) error {
	if r.Status != RedemptionStatusPending {
		return ErrNotCancellable
	}

	now := time.Now()
	r.Status = RedemptionStatusCancelled
	r.CancelReason = reason
	r.CancelledAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewRedemptionCancelledEvent(r))

	return nil
}
