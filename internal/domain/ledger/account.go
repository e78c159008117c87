package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/shared"
)

// AccountKind represents the kind of balance an account holds
type AccountKind string

const (
	// AccountKindCash is a partner wallet cash balance in minor currency units
	AccountKindCash AccountKind = "CASH"
	// AccountKindCredit is a revolving credit line; the balance tracks used credit
	AccountKindCredit AccountKind = "CREDIT"
	// AccountKindPoints is a guide reward-points balance
	AccountKindPoints AccountKind = "POINTS"
)

// String returns the string representation of AccountKind
func (k AccountKind) String() string {
	return string(k)
}

// IsValid returns true if the account kind is valid
func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindCash, AccountKindCredit, AccountKindPoints:
		return true
	}
	return false
}

// kindsAllowed maps an account kind to the transaction kinds it accepts.
var kindsAllowed = map[AccountKind]map[TransactionKind]bool{
	AccountKindCash: {
		TransactionKindDebit:  true,
		TransactionKindCredit: true,
		TransactionKindRefund: true,
	},
	AccountKindCredit: {
		TransactionKindCredit:    true,
		TransactionKindRepayment: true,
	},
	AccountKindPoints: {
		TransactionKindEarn:   true,
		TransactionKindRedeem: true,
		TransactionKindExpiry: true,
	},
}

// Account is a balance-holding aggregate of one kind (cash, credit, points)
// belonging to a holder. The balance is derived from the account's transaction
// log; it is cached on the aggregate and updated in the same atomic unit as the
// transaction insert, never by a bare read-modify-write from callers.
//
// For credit accounts the balance tracks the used portion of the line:
// 0 <= Balance <= CreditLimit at all times.
type Account struct {
	shared.TenantAggregateRoot
	HolderID    uuid.UUID
	Kind        AccountKind
	Balance     int64
	CreditLimit int64 // credit accounts only
}

// NewAccount creates a new cash or points account for a holder
func NewAccount(tenantID, holderID uuid.UUID, kind AccountKind) (*Account, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if holderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_HOLDER", "Holder ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_KIND", "Invalid account kind")
	}
	if kind == AccountKindCredit {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_KIND", "Credit accounts require a credit limit; use NewCreditAccount")
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		HolderID:            holderID,
		Kind:                kind,
	}, nil
}

// NewCreditAccount creates a new revolving credit account with the given limit
func NewCreditAccount(tenantID, holderID uuid.UUID, creditLimit int64) (*Account, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if holderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_HOLDER", "Holder ID cannot be empty")
	}
	if creditLimit <= 0 {
		return nil, shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit must be positive")
	}

	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		HolderID:            holderID,
		Kind:                AccountKindCredit,
		CreditLimit:         creditLimit,
	}, nil
}

// CreditState is the derived view of a credit account
type CreditState struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Available int64 `json:"available"`
}

// CreditState returns the derived credit state. Only meaningful for credit accounts.
func (a *Account) CreditState() CreditState {
	return CreditState{
		Used:      a.Balance,
		Limit:     a.CreditLimit,
		Available: a.CreditLimit - a.Balance,
	}
}

// AvailableCredit returns the remaining headroom on the credit line
func (a *Account) AvailableCredit() int64 {
	if a.Kind != AccountKindCredit {
		return 0
	}
	return a.CreditLimit - a.Balance
}

// Accepts returns true if the account accepts transactions of the given kind
func (a *Account) Accepts(kind TransactionKind) bool {
	return kindsAllowed[a.Kind][kind]
}

// Apply validates a transaction against the account's invariants and applies
// its effect to the derived balance. On success the transaction's BalanceAfter
// is stamped and the aggregate version is bumped so the persistence layer can
// enforce optimistic locking.
func (a *Account) Apply(t *Transaction) error {
	if t.AccountID != a.ID {
		return shared.NewDomainError("ACCOUNT_MISMATCH", "Transaction does not belong to this account")
	}
	if !a.Accepts(t.Kind) {
		return shared.NewDomainError("INVALID_TRANSACTION_KIND",
			"Transaction kind "+t.Kind.String()+" is not valid for a "+a.Kind.String()+" account")
	}

	newBalance := a.Balance + t.Amount
	switch a.Kind {
	case AccountKindCash, AccountKindPoints:
		if newBalance < 0 {
			return ErrInsufficientBalance
		}
	case AccountKindCredit:
		if t.Kind == TransactionKindRepayment && newBalance < 0 {
			return ErrAmountExceedsDebt
		}
		if newBalance < 0 {
			return ErrInsufficientBalance
		}
		if newBalance > a.CreditLimit {
			return ErrCreditLimitExceeded
		}
	}

	a.Balance = newBalance
	t.BalanceAfter = newBalance
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	a.AddDomainEvent(NewTransactionRecordedEvent(a, t))

	return nil
}

// SetCreditLimit changes the credit limit. Lowering the limit below the
// currently used credit is rejected.
func (a *Account) SetCreditLimit(limit int64) error {
	if a.Kind != AccountKindCredit {
		return shared.NewDomainError("INVALID_ACCOUNT_KIND", "Only credit accounts have a credit limit")
	}
	if limit <= 0 {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit must be positive")
	}
	if limit < a.Balance {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be lowered below the used credit")
	}

	a.CreditLimit = limit
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}
