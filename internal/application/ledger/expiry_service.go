package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// DefaultRetentionMonths is how long earned points stay usable
	DefaultRetentionMonths = 24
	// DefaultSweepBatchSize is how many accounts one sweep page processes
	DefaultSweepBatchSize = 200
)

// ExpiryConfig carries the points retention policy
type ExpiryConfig struct {
	RetentionMonths int
	BatchSize       int
}

// ExpiryService ages out unused points. The expirable amount is a pure
// function of the transaction log as of the cutoff, and every expiry entry is
// keyed per (account, sweep period), so overlapping sweeps with the same asOf
// expire the same points exactly once.
type ExpiryService struct {
	txScope TransactionScope
	config  ExpiryConfig
	logger  *zap.Logger
}

// NewExpiryService creates a new ExpiryService
func NewExpiryService(txScope TransactionScope, config ExpiryConfig, logger *zap.Logger) *ExpiryService {
	if config.RetentionMonths <= 0 {
		config.RetentionMonths = DefaultRetentionMonths
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSweepBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryService{
		txScope: txScope,
		config:  config,
		logger:  logger,
	}
}

// SweepResult summarizes one expiry sweep
type SweepResult struct {
	ExpiredCount       int   `json:"expired_count"`
	TotalExpiredPoints int64 `json:"total_expired_points"`
}

// sweepPeriod labels the sweep window an expiry entry belongs to. Two sweeps
// with the same asOf share the period and therefore the idempotency keys.
func sweepPeriod(asOf time.Time) string {
	return asOf.UTC().Format("2006-01")
}

// SweepExpired walks every points account of the tenant and expires points
// earned before the retention cutoff that were never spent. Spending is
// assumed to consume the oldest points first, so the expirable amount is the
// points earned before the cutoff minus everything deducted up to asOf,
// clamped to the current balance.
func (s *ExpiryService) SweepExpired(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*SweepResult, error) {
	cutoff := asOf.AddDate(0, -s.config.RetentionMonths, 0)
	period := sweepPeriod(asOf)
	result := &SweepResult{}

	filter := shared.DefaultFilter()
	filter.PageSize = s.config.BatchSize
	for page := 1; ; page++ {
		filter.Page = page

		var accounts []*ledger.Account
		var totalPages int
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			batch, err := repos.AccountRepo().FindByKind(ctx, tenantID, ledger.AccountKindPoints, filter)
			if err != nil {
				return err
			}
			accounts = batch.Items
			totalPages = batch.TotalPages
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			expired, err := s.expireAccount(ctx, account.TenantID, account.ID, cutoff, asOf, period)
			if err != nil {
				return result, err
			}
			if expired > 0 {
				result.ExpiredCount++
				result.TotalExpiredPoints += expired
			}
		}

		if page >= totalPages {
			break
		}
	}

	s.logger.Info("expiry sweep finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Time("as_of", asOf),
		zap.String("period", period),
		zap.Int("accounts_expired", result.ExpiredCount),
		zap.Int64("points_expired", result.TotalExpiredPoints))
	return result, nil
}

// expireAccount computes and records the expiry for one account. Returns the
// newly expired amount, zero when nothing was expirable or a prior sweep of
// the same period already recorded it.
func (s *ExpiryService) expireAccount(ctx context.Context, tenantID, accountID uuid.UUID, cutoff, asOf time.Time, period string) (int64, error) {
	var expired int64
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		// Re-read inside the scope so the calculation and the insert see the
		// same committed state.
		account, err := repos.AccountRepo().FindByID(ctx, tenantID, accountID)
		if err != nil {
			return err
		}

		expirable, err := s.expirableAmount(ctx, repos, account, cutoff, asOf)
		if err != nil {
			return err
		}
		if expirable <= 0 {
			return nil
		}

		sourceID := fmt.Sprintf("%s:%s", account.ID, period)
		txn, err := ledger.NewTransaction(account.TenantID, account.ID, ledger.TransactionKindExpiry, -expirable,
			ledger.SourceTypeExpirySweep, sourceID)
		if err != nil {
			return err
		}
		txn.WithDerivedIdempotencyKey().WithReason(fmt.Sprintf("Points expired after %d months", s.config.RetentionMonths))

		recorded, replayed, err := appendEntry(ctx, repos, account, txn)
		if err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				// An overlapping sweep got there first; nothing left to expire
				return nil
			}
			return err
		}
		if replayed {
			return nil
		}
		if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
			return err
		}
		expired = -recorded.Amount

		return repos.PublishEvents(ctx, ledger.NewPointsExpiredEvent(account, expired, period))
	})
	return expired, err
}

// SweepAllTenants runs the sweep for every tenant with accounts. This is the
// entry point for the scheduled job.
func (s *ExpiryService) SweepAllTenants(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	var tenants []uuid.UUID
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tenants, err = repos.AccountRepo().DistinctTenants(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	total := &SweepResult{}
	for _, tenantID := range tenants {
		result, err := s.SweepExpired(ctx, tenantID, asOf)
		if err != nil {
			return total, err
		}
		total.ExpiredCount += result.ExpiredCount
		total.TotalExpiredPoints += result.TotalExpiredPoints
	}
	return total, nil
}

// expirableAmount is the pure expiry calculation: points earned before the
// cutoff, minus all deductions recorded up to asOf (oldest points are spent
// first), clamped to the current balance.
func (s *ExpiryService) expirableAmount(
	ctx context.Context,
	repos TransactionalRepositories,
	account *ledger.Account,
	cutoff, asOf time.Time,
) (int64, error) {
	earned, err := repos.TransactionRepo().SumByKindsBefore(ctx, account.ID,
		[]ledger.TransactionKind{ledger.TransactionKindEarn}, cutoff)
	if err != nil {
		return 0, err
	}
	deducted, err := repos.TransactionRepo().SumByKindsBefore(ctx, account.ID,
		[]ledger.TransactionKind{ledger.TransactionKindRedeem, ledger.TransactionKindExpiry}, asOf)
	if err != nil {
		return 0, err
	}

	// deducted is a sum of negative amounts
	expirable := earned + deducted
	if expirable > account.Balance {
		expirable = account.Balance
	}
	if expirable < 0 {
		expirable = 0
	}
	return expirable, nil
}
