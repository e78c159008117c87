package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"github.com/voyago/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM.
// The transaction log is append-only: rows are only ever inserted.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Save inserts a new ledger transaction. A concurrent insert with the same
// (account_id, idempotency_key) loses the unique-index race and surfaces as
// shared.ErrAlreadyExists.
func (r *GormTransactionRepository) Save(ctx context.Context, transaction *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(transaction)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a transaction by ID within a tenant
func (r *GormTransactionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
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

// FindByIdempotencyKey looks up a prior entry for replay detection
func (r *GormTransactionRepository) FindByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND idempotency_key = ?", accountID, key).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount pages through the account's transaction log
func (r *GormTransactionRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[*ledger.Transaction], error) {
	var transactionModels []models.TransactionModel
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID)
	countQuery = r.applyFilters(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return shared.Paginated[*ledger.Transaction]{}, err
	}

	query := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID)
	query = r.applyFilters(query, filter)
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, TransactionSortFields, "recorded_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&transactionModels).Error; err != nil {
		return shared.Paginated[*ledger.Transaction]{}, err
	}

	transactions := make([]*ledger.Transaction, len(transactionModels))
	for i := range transactionModels {
		transactions[i] = transactionModels[i].ToDomain()
	}
	return shared.NewPaginated(transactions, total, filter.Page, filter.PageSize), nil
}

// SumByAccount returns the signed sum of all entries for the account
func (r *GormTransactionRepository) SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("account_id = ?", accountID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// SumByKindsBefore returns the signed sum of entries of the given kinds
// recorded strictly before the cutoff
func (r *GormTransactionRepository) SumByKindsBefore(ctx context.Context, accountID uuid.UUID, kinds []ledger.TransactionKind, before time.Time) (int64, error) {
	if len(kinds) == 0 {
		return 0, nil
	}
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("account_id = ? AND kind IN ? AND recorded_at < ?", accountID, kinds, before).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// CountByAccountAndSource counts entries by source type
func (r *GormTransactionRepository) CountByAccountAndSource(ctx context.Context, accountID uuid.UUID, sourceType ledger.SourceType) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("account_id = ? AND source_type = ?", accountID, sourceType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilters applies optional filter criteria to the query
func (r *GormTransactionRepository) applyFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "kind":
			query = query.Where("kind = ?", value)
		case "source_type":
			query = query.Where("source_type = ?", value)
		case "recorded_from":
			query = query.Where("recorded_at >= ?", value)
		case "recorded_to":
			query = query.Where("recorded_at <= ?", value)
		}
	}
	return query
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
