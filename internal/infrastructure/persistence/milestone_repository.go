package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"github.com/voyago/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMilestoneRepository implements ledger.MilestoneRepository using GORM
type GormMilestoneRepository struct {
	db *gorm.DB
}

// NewGormMilestoneRepository creates a new GormMilestoneRepository
func NewGormMilestoneRepository(db *gorm.DB) *GormMilestoneRepository {
	return &GormMilestoneRepository{db: db}
}

// Save inserts a new milestone. A concurrent insert for the same
// (tenant, holder, rule) loses the unique-index race and surfaces as
// shared.ErrAlreadyExists.
func (r *GormMilestoneRepository) Save(ctx context.Context, milestone *ledger.Milestone) error {
	model := models.MilestoneModelFromDomain(milestone)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves the milestone with optimistic locking (version check)
func (r *GormMilestoneRepository) SaveWithLock(ctx context.Context, milestone *ledger.Milestone) error {
	model := models.MilestoneModelFromDomain(milestone)
	result := r.db.WithContext(ctx).
		Model(&models.MilestoneModel{}).
		Where("id = ? AND version = ?", milestone.ID, milestone.Version-1).
		Updates(map[string]interface{}{
			"status":                model.Status,
			"reward_transaction_id": model.RewardTransactionID,
			"payout_attempts":       model.PayoutAttempts,
			"last_attempt_at":       model.LastAttemptAt,
			"paid_at":               model.PaidAt,
			"version":               model.Version,
			"updated_at":            model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a milestone by ID within a tenant
func (r *GormMilestoneRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Milestone, error) {
	var model models.MilestoneModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByHolderAndRule finds the holder's milestone for a specific rule
func (r *GormMilestoneRepository) FindByHolderAndRule(ctx context.Context, tenantID, holderID uuid.UUID, ruleID string) (*ledger.Milestone, error) {
	var model models.MilestoneModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND holder_id = ? AND rule_id = ?", tenantID, holderID, ruleID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByHolder finds all milestones achieved by a holder
func (r *GormMilestoneRepository) FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID) ([]*ledger.Milestone, error) {
	var milestoneModels []models.MilestoneModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND holder_id = ?", tenantID, holderID).
		Order("achieved_at DESC").
		Find(&milestoneModels).Error; err != nil {
		return nil, err
	}
	milestones := make([]*ledger.Milestone, len(milestoneModels))
	for i := range milestoneModels {
		milestones[i] = milestoneModels[i].ToDomain()
	}
	return milestones, nil
}

// FindUnpaid returns detected milestones whose payout has not completed,
// oldest first
func (r *GormMilestoneRepository) FindUnpaid(ctx context.Context, tenantID uuid.UUID, limit int) ([]*ledger.Milestone, error) {
	var milestoneModels []models.MilestoneModel
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, ledger.MilestoneStatusDetected).
		Order("achieved_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&milestoneModels).Error; err != nil {
		return nil, err
	}
	milestones := make([]*ledger.Milestone, len(milestoneModels))
	for i := range milestoneModels {
		milestones[i] = milestoneModels[i].ToDomain()
	}
	return milestones, nil
}

// Ensure GormMilestoneRepository implements MilestoneRepository
var _ ledger.MilestoneRepository = (*GormMilestoneRepository)(nil)
