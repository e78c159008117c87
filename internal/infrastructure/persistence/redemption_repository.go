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

// GormRedemptionRepository implements ledger.RedemptionRepository using GORM
type GormRedemptionRepository struct {
	db *gorm.DB
}

// NewGormRedemptionRepository creates a new GormRedemptionRepository
func NewGormRedemptionRepository(db *gorm.DB) *GormRedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// Save creates or updates a redemption. A second redemption for the same
// booking violates the (tenant, booking) uniqueness and surfaces as
// shared.ErrAlreadyExists.
func (r *GormRedemptionRepository) Save(ctx context.Context, redemption *ledger.Redemption) error {
	model := models.RedemptionModelFromDomain(redemption)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves the redemption with optimistic locking (version check)
func (r *GormRedemptionRepository) SaveWithLock(ctx context.Context, redemption *ledger.Redemption) error {
	model := models.RedemptionModelFromDomain(redemption)
	result := r.db.WithContext(ctx).
		Model(&models.RedemptionModel{}).
		Where("id = ? AND version = ?", redemption.ID, redemption.Version-1).
		Updates(map[string]interface{}{
			"status":        model.Status,
			"cancel_reason": model.CancelReason,
			"completed_at":  model.CompletedAt,
			"cancelled_at":  model.CancelledAt,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a redemption by ID within a tenant
func (r *GormRedemptionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Redemption, error) {
	var model models.RedemptionModel
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

// FindByBooking finds the redemption recorded against a booking
func (r *GormRedemptionRepository) FindByBooking(ctx context.Context, tenantID uuid.UUID, bookingID string) (*ledger.Redemption, error) {
	var model models.RedemptionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND booking_id = ?", tenantID, bookingID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByHolder pages through a holder's redemptions
func (r *GormRedemptionRepository) FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID, filter shared.Filter) (shared.Paginated[*ledger.Redemption], error) {
	var redemptionModels []models.RedemptionModel
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.RedemptionModel{}).
		Where("tenant_id = ? AND holder_id = ?", tenantID, holderID)
	if err := countQuery.Count(&total).Error; err != nil {
		return shared.Paginated[*ledger.Redemption]{}, err
	}

	query := r.db.WithContext(ctx).Model(&models.RedemptionModel{}).
		Where("tenant_id = ? AND holder_id = ?", tenantID, holderID)
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, RedemptionSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&redemptionModels).Error; err != nil {
		return shared.Paginated[*ledger.Redemption]{}, err
	}

	redemptions := make([]*ledger.Redemption, len(redemptionModels))
	for i := range redemptionModels {
		redemptions[i] = redemptionModels[i].ToDomain()
	}
	return shared.NewPaginated(redemptions, total, filter.Page, filter.PageSize), nil
}

// Ensure GormRedemptionRepository implements RedemptionRepository
var _ ledger.RedemptionRepository = (*GormRedemptionRepository)(nil)
