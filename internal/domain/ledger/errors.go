package ledger

import "github.com/voyago/backend/internal/domain/shared"

// Ledger domain errors. Business-rule rejections are expected outcomes and are
// always returned as typed DomainErrors, never as wrapped infrastructure faults.
var (
	// ErrInvalidAmount is returned for non-positive or malformed amounts.
	ErrInvalidAmount = shared.NewDomainError("INVALID_AMOUNT", "Amount must be a positive integer")

	// ErrInsufficientBalance is returned when a points or cash balance cannot
	// cover the requested deduction.
	ErrInsufficientBalance = shared.NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")

	// ErrInsufficientFunds is returned when cash plus available credit cannot
	// cover a wallet debit.
	ErrInsufficientFunds = shared.NewDomainError("INSUFFICIENT_FUNDS", "Insufficient funds: cash and available credit cannot cover the amount")

	// ErrAmountExceedsDebt is returned when a credit repayment would push the
	// used credit below zero.
	ErrAmountExceedsDebt = shared.NewDomainError("AMOUNT_EXCEEDS_DEBT", "Repayment amount exceeds outstanding debt")

	// ErrCreditLimitExceeded is returned when a credit draw would push the used
	// credit above the account's limit.
	ErrCreditLimitExceeded = shared.NewDomainError("CREDIT_LIMIT_EXCEEDED", "Credit draw would exceed the credit limit")

	// ErrNotCancellable is returned when cancelling a redemption that already
	// reached a terminal status.
	ErrNotCancellable = shared.NewDomainError("NOT_CANCELLABLE", "Redemption is no longer cancellable")

	// ErrIdempotencyKeyRequired is returned when an operation that must be
	// idempotent is invoked without a key and without a source to derive one.
	ErrIdempotencyKeyRequired = shared.NewDomainError("IDEMPOTENCY_KEY_REQUIRED", "An idempotency key or a source reference is required")

	// ErrIdempotencyConflict is returned when an idempotency key is replayed
	// with a different amount or kind. This indicates a caller bug and is
	// rejected loudly instead of silently returning the mismatched prior result.
	ErrIdempotencyConflict = shared.NewDomainError("DUPLICATE_IDEMPOTENCY_KEY_CONFLICT", "Idempotency key was reused with a different payload")

	// ErrAccountNotFound is returned when the referenced account does not exist.
	ErrAccountNotFound = shared.NewDomainError("ACCOUNT_NOT_FOUND", "Ledger account not found")

	// ErrRedemptionNotFound is returned when the referenced redemption does not exist.
	ErrRedemptionNotFound = shared.NewDomainError("REDEMPTION_NOT_FOUND", "Redemption not found")
)
