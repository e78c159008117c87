// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLedgerMetricsProvider implements LedgerMetricsProvider using GORM.
// It queries the ledger tables directly for aggregated metrics.
type GormLedgerMetricsProvider struct {
	db *gorm.DB
}

// NewGormLedgerMetricsProvider creates a new GormLedgerMetricsProvider.
func NewGormLedgerMetricsProvider(db *gorm.DB) *GormLedgerMetricsProvider {
	return &GormLedgerMetricsProvider{db: db}
}

// GetOutstandingCredit returns the total drawn credit across all credit
// accounts for a tenant. Credit account balances track used credit, so the
// sum of positive balances is the tenant's exposure.
func (p *GormLedgerMetricsProvider) GetOutstandingCredit(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var outstanding int64
	err := p.db.WithContext(ctx).
		Table("ledger_accounts").
		Select("COALESCE(SUM(balance), 0)").
		Where("tenant_id = ? AND kind = ? AND balance > 0", tenantID, "CREDIT").
		Scan(&outstanding).Error

	return outstanding, err
}

// GetPendingPayoutCount returns the number of milestones detected but not yet
// paid for a tenant.
func (p *GormLedgerMetricsProvider) GetPendingPayoutCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("ledger_milestones").
		Where("tenant_id = ? AND status = ?", tenantID, "DETECTED").
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all tenant IDs with at least one ledger account.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("ledger_accounts").
		Select("DISTINCT tenant_id").
		Order("tenant_id").
		Find(&ids).Error

	return ids, err
}
