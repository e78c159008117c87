package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appledger "github.com/voyago/backend/internal/application/ledger"
)

const defaultPayoutBatchSize = 100

// LedgerJobExecutor executes background ledger jobs against the
// application services.
type LedgerJobExecutor struct {
	expiry     *appledger.ExpiryService
	milestones *appledger.MilestoneService
	tenants    TenantProvider
	logger     *zap.Logger
}

// NewLedgerJobExecutor creates a new ledger job executor
func NewLedgerJobExecutor(
	expiry *appledger.ExpiryService,
	milestones *appledger.MilestoneService,
	tenants TenantProvider,
	logger *zap.Logger,
) *LedgerJobExecutor {
	return &LedgerJobExecutor{
		expiry:     expiry,
		milestones: milestones,
		tenants:    tenants,
		logger:     logger,
	}
}

// Execute runs the given job
func (e *LedgerJobExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.JobType {
	case JobTypeExpirySweep:
		return e.executeExpirySweep(ctx, job)
	case JobTypeMilestonePayout:
		return e.executeMilestonePayout(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidJobType, job.JobType)
	}
}

func (e *LedgerJobExecutor) executeExpirySweep(ctx context.Context, job *Job) error {
	var (
		result *appledger.SweepResult
		err    error
	)
	if job.TenantID == nil {
		result, err = e.expiry.SweepAllTenants(ctx, job.AsOf)
	} else {
		result, err = e.expiry.SweepExpired(ctx, *job.TenantID, job.AsOf)
	}
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}

	e.logger.Info("Expiry sweep completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("expired_accounts", result.ExpiredCount),
		zap.Int64("total_expired_points", result.TotalExpiredPoints),
	)
	return nil
}

func (e *LedgerJobExecutor) executeMilestonePayout(ctx context.Context, job *Job) error {
	tenantIDs, err := e.resolveTenants(ctx, job)
	if err != nil {
		return err
	}

	var paid, failed, escalated int
	for _, tenantID := range tenantIDs {
		result, err := e.milestones.PayoutPending(ctx, tenantID, defaultPayoutBatchSize)
		if err != nil {
			return fmt.Errorf("milestone payout for tenant %s: %w", tenantID, err)
		}
		paid += result.Paid
		failed += result.Failed
		escalated += result.Escalated
	}

	if paid > 0 || failed > 0 || escalated > 0 {
		e.logger.Info("Milestone payout pass completed",
			zap.String("job_id", job.ID.String()),
			zap.Int("paid", paid),
			zap.Int("failed", failed),
			zap.Int("escalated", escalated),
		)
	}
	return nil
}

func (e *LedgerJobExecutor) resolveTenants(ctx context.Context, job *Job) ([]uuid.UUID, error) {
	if job.TenantID != nil {
		return []uuid.UUID{*job.TenantID}, nil
	}
	tenantIDs, err := e.tenants.GetAllActiveTenantIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenantIDs, nil
}
