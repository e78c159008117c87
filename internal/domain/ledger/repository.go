package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/shared"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	Save(ctx context.Context, account *Account) error
	// SaveWithLock persists the account only if its stored version still
	// matches, returning shared.ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindByHolderAndKind(ctx context.Context, tenantID, holderID uuid.UUID, kind AccountKind) (*Account, error)
	FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID) ([]*Account, error)
	// FindByKind pages through all accounts of one kind for a tenant,
	// used by the expiry sweep
	FindByKind(ctx context.Context, tenantID uuid.UUID, kind AccountKind, filter shared.Filter) (shared.Paginated[*Account], error)
	// DistinctTenants lists every tenant holding at least one account,
	// used to fan the expiry sweep out across tenants
	DistinctTenants(ctx context.Context) ([]uuid.UUID, error)
}

// TransactionRepository defines the interface for the append-only
// transaction log. Entries are never updated or deleted.
type TransactionRepository interface {
	Save(ctx context.Context, transaction *Transaction) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Transaction, error)
	// FindByIdempotencyKey looks up a prior entry for replay detection.
	// Returns shared.ErrNotFound when no entry carries the key.
	FindByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*Transaction, error)
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[*Transaction], error)
	// SumByAccount returns the signed sum of all entries for the account,
	// which by construction equals the account balance
	SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	// SumByKindsBefore returns the signed sum of entries of the given kinds
	// recorded strictly before the cutoff
	SumByKindsBefore(ctx context.Context, accountID uuid.UUID, kinds []TransactionKind, before time.Time) (int64, error)
	// CountByAccountAndSource counts entries by source type, used as the
	// activity counter for reward rule evaluation
	CountByAccountAndSource(ctx context.Context, accountID uuid.UUID, sourceType SourceType) (int64, error)
}

// MilestoneRepository defines the interface for milestone persistence
type MilestoneRepository interface {
	// Save inserts the milestone; a violation of the (tenant, holder, rule)
	// uniqueness surfaces as shared.ErrAlreadyExists
	Save(ctx context.Context, milestone *Milestone) error
	SaveWithLock(ctx context.Context, milestone *Milestone) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Milestone, error)
	FindByHolderAndRule(ctx context.Context, tenantID, holderID uuid.UUID, ruleID string) (*Milestone, error)
	FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID) ([]*Milestone, error)
	// FindUnpaid returns detected milestones whose payout has not completed,
	// oldest first, for the payout retry job
	FindUnpaid(ctx context.Context, tenantID uuid.UUID, limit int) ([]*Milestone, error)
}

// RedemptionRepository defines the interface for redemption persistence
type RedemptionRepository interface {
	Save(ctx context.Context, redemption *Redemption) error
	SaveWithLock(ctx context.Context, redemption *Redemption) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Redemption, error)
	FindByBooking(ctx context.Context, tenantID uuid.UUID, bookingID string) (*Redemption, error)
	FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID, filter shared.Filter) (shared.Paginated[*Redemption], error)
}
