// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics provides business metrics for the ledger.
// It tracks transaction volume, milestone payouts, and credit exposure.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	transactionTotal       *Counter
	transactionAmountTotal *Counter
	payoutTotal            *Counter

	// Gauge metrics (point-in-time values)
	outstandingCredit *Gauge
	pendingPayouts    *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	ledgerProvider LedgerMetricsProvider
}

// LedgerMetricsProvider provides ledger data for periodic metrics collection.
// This interface allows the telemetry layer to query ledger state without
// depending on the ledger domain directly.
type LedgerMetricsProvider interface {
	// GetOutstandingCredit returns the total drawn credit across all credit
	// accounts for a tenant, in minor currency units
	GetOutstandingCredit(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetPendingPayoutCount returns the number of milestones detected but not
	// yet paid for a tenant
	GetPendingPayoutCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	LedgerProvider  LedgerMetricsProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		ledgerProvider: cfg.LedgerProvider,
	}

	// Initialize counter metrics
	var err error

	// Transaction metrics
	lm.transactionTotal, err = NewCounter(
		cfg.Meter,
		"ledger_transaction_total",
		"Total number of ledger transactions recorded",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	lm.transactionAmountTotal, err = NewCounter(
		cfg.Meter,
		"ledger_transaction_amount_total",
		"Total transaction amount in minor currency units",
		"{minor_units}",
	)
	if err != nil {
		return nil, err
	}

	// Milestone payout metrics
	lm.payoutTotal, err = NewCounter(
		cfg.Meter,
		"ledger_milestone_payout_total",
		"Total number of milestone payout attempts",
		"{payouts}",
	)
	if err != nil {
		return nil, err
	}

	// Ledger gauge metrics
	lm.outstandingCredit, err = NewGauge(
		cfg.Meter,
		"ledger_credit_outstanding",
		"Current drawn credit across all credit accounts",
		"{minor_units}",
	)
	if err != nil {
		return nil, err
	}

	lm.pendingPayouts, err = NewGauge(
		cfg.Meter,
		"ledger_milestone_pending_payouts",
		"Number of milestones detected but not yet paid",
		"{milestones}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// =============================================================================
// Transaction Metrics
// =============================================================================

// RecordTransaction records a ledger transaction event.
// This should be called from the application layer after a transaction commits.
func (lm *LedgerMetrics) RecordTransaction(ctx context.Context, tenantID uuid.UUID, transactionType string) {
	lm.transactionTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrTransactionType.String(transactionType),
	)
}

// RecordTransactionAmount records the absolute transaction amount.
// Amount should be in minor currency units.
func (lm *LedgerMetrics) RecordTransactionAmount(ctx context.Context, tenantID uuid.UUID, transactionType string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	lm.transactionAmountTotal.Add(ctx, amount,
		AttrTenantID.String(tenantID.String()),
		AttrTransactionType.String(transactionType),
	)
}

// RecordTransactionWithAmount is a convenience method that records both
// transaction count and amount.
func (lm *LedgerMetrics) RecordTransactionWithAmount(ctx context.Context, tenantID uuid.UUID, transactionType string, amount int64) {
	lm.RecordTransaction(ctx, tenantID, transactionType)
	lm.RecordTransactionAmount(ctx, tenantID, transactionType, amount)
}

// =============================================================================
// Milestone Payout Metrics
// =============================================================================

// PayoutStatus represents the outcome of a milestone payout for metrics labeling.
type PayoutStatus string

const (
	PayoutStatusSuccess PayoutStatus = "success"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// RecordPayout records a milestone payout attempt.
// This should be called when the payout phase processes a milestone.
func (lm *LedgerMetrics) RecordPayout(ctx context.Context, tenantID uuid.UUID, ruleID string, status PayoutStatus) {
	lm.payoutTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrMilestoneRule.String(ruleID),
		AttrPayoutStatus.String(string(status)),
	)
}

// =============================================================================
// Ledger Gauge Metrics
// =============================================================================

// RecordOutstandingCredit records the current drawn credit for a tenant.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordOutstandingCredit(ctx context.Context, tenantID uuid.UUID, amount int64) {
	lm.outstandingCredit.Record(ctx, amount,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordPendingPayouts records the number of unpaid milestones for a tenant.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordPendingPayouts(ctx context.Context, tenantID uuid.UUID, count int64) {
	lm.pendingPayouts.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects ledger metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go lm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	lm.collectLedgerMetrics(ctx, tenantProvider)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectLedgerMetrics(ctx, tenantProvider)
		}
	}
}

// collectLedgerMetrics collects ledger gauge metrics for all tenants.
func (lm *LedgerMetrics) collectLedgerMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if lm.ledgerProvider == nil {
		lm.logger.Debug("No ledger provider configured, skipping ledger metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		lm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		lm.collectTenantLedgerMetrics(ctx, tenantID)
	}
}

// collectTenantLedgerMetrics collects ledger metrics for a single tenant.
func (lm *LedgerMetrics) collectTenantLedgerMetrics(ctx context.Context, tenantID uuid.UUID) {
	// Collect outstanding credit
	outstanding, err := lm.ledgerProvider.GetOutstandingCredit(ctx, tenantID)
	if err != nil {
		lm.logger.Warn("Failed to get outstanding credit for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		lm.RecordOutstandingCredit(ctx, tenantID, outstanding)
	}

	// Collect pending payout count
	pending, err := lm.ledgerProvider.GetPendingPayoutCount(ctx, tenantID)
	if err != nil {
		lm.logger.Warn("Failed to get pending payout count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		lm.RecordPendingPayouts(ctx, tenantID, pending)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Ledger metrics attribute keys not already defined in metrics.go
var (
	AttrPayoutStatus = attribute.Key("payout_status")
)
