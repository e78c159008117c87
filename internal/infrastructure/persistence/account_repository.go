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

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Save creates or updates an account. A violation of the (tenant, holder, kind)
// uniqueness surfaces as shared.ErrAlreadyExists.
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves the account with optimistic locking (version check)
func (r *GormAccountRepository) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("id = ? AND version = ?", account.ID, account.Version-1).
		Updates(map[string]interface{}{
			"balance":      model.Balance,
			"credit_limit": model.CreditLimit,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds an account by ID within a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
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

// FindByHolderAndKind finds the holder's account of the given kind
func (r *GormAccountRepository) FindByHolderAndKind(ctx context.Context, tenantID, holderID uuid.UUID, kind ledger.AccountKind) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND holder_id = ? AND kind = ?", tenantID, holderID, kind).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByHolder finds all accounts belonging to a holder
func (r *GormAccountRepository) FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID) ([]*ledger.Account, error) {
	var accountModels []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND holder_id = ?", tenantID, holderID).
		Order("kind ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]*ledger.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return accounts, nil
}

// FindByKind pages through all accounts of one kind for a tenant
func (r *GormAccountRepository) FindByKind(ctx context.Context, tenantID uuid.UUID, kind ledger.AccountKind, filter shared.Filter) (shared.Paginated[*ledger.Account], error) {
	var accountModels []models.AccountModel
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("tenant_id = ? AND kind = ?", tenantID, kind)
	if err := countQuery.Count(&total).Error; err != nil {
		return shared.Paginated[*ledger.Account]{}, err
	}

	query := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("tenant_id = ? AND kind = ?", tenantID, kind)
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, AccountSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&accountModels).Error; err != nil {
		return shared.Paginated[*ledger.Account]{}, err
	}

	accounts := make([]*ledger.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return shared.NewPaginated(accounts, total, filter.Page, filter.PageSize), nil
}

// DistinctTenants lists every tenant holding at least one account
func (r *GormAccountRepository) DistinctTenants(ctx context.Context) ([]uuid.UUID, error) {
	var tenants []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// Ensure GormAccountRepository implements AccountRepository
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
