package persistence

import (
	"context"

	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations. Domain
// events staged through the scope are saved to the outbox on the same
// transaction, so an event row never outlives a rolled-back write.
type GormTransactionScope struct {
	db         *gorm.DB
	eventSaver shared.OutboxEventSaver
}

// NewGormTransactionScope creates a new GormTransactionScope. The event saver
// may be nil when the caller has no outbox, in which case staged events are
// dropped.
func NewGormTransactionScope(db *gorm.DB, eventSaver shared.OutboxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, eventSaver: eventSaver}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx, eventSaver: s.eventSaver}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx         *gorm.DB
	eventSaver shared.OutboxEventSaver
}

// AccountRepo returns the account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AccountRepo() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// TransactionRepo returns the ledger transaction repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransactionRepo() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

// MilestoneRepo returns the milestone repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MilestoneRepo() ledger.MilestoneRepository {
	return NewGormMilestoneRepository(r.tx)
}

// RedemptionRepo returns the redemption repository scoped to the current transaction.
func (r *gormTransactionalRepositories) RedemptionRepo() ledger.RedemptionRepository {
	return NewGormRedemptionRepository(r.tx)
}

// PublishEvents saves the events to the outbox on the current transaction.
func (r *gormTransactionalRepositories) PublishEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if r.eventSaver == nil || len(events) == 0 {
		return nil
	}
	return r.eventSaver.SaveEvents(ctx, r.tx, events...)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
