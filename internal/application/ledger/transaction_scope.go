package ledger

import (
	"context"
	"sync"

	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Every mutating ledger operation runs inside one scope:
// the transaction insert, the cached balance update and any lifecycle row
// (milestone, redemption) either all land or none do.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within
// a transaction. All repositories returned share the same underlying database
// transaction.
type TransactionalRepositories interface {
	// AccountRepo returns the account repository scoped to the current transaction
	AccountRepo() ledger.AccountRepository
	// TransactionRepo returns the append-only transaction log repository
	// scoped to the current transaction
	TransactionRepo() ledger.TransactionRepository
	// MilestoneRepo returns the milestone repository scoped to the current transaction
	MilestoneRepo() ledger.MilestoneRepository
	// RedemptionRepo returns the redemption repository scoped to the current transaction
	RedemptionRepo() ledger.RedemptionRepository
	// PublishEvents stages domain events for delivery within the current
	// transaction. The events become visible to consumers only if the
	// transaction commits; a rollback discards them with the writes they
	// describe.
	PublishEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing with in-memory or mock repositories.
type NoOpTransactionScope struct {
	accountRepo     ledger.AccountRepository
	transactionRepo ledger.TransactionRepository
	milestoneRepo   ledger.MilestoneRepository
	redemptionRepo  ledger.RedemptionRepository

	execMu    sync.Mutex
	mu        sync.Mutex
	published []shared.DomainEvent
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	accountRepo ledger.AccountRepository,
	transactionRepo ledger.TransactionRepository,
	milestoneRepo ledger.MilestoneRepository,
	redemptionRepo ledger.RedemptionRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		milestoneRepo:   milestoneRepo,
		redemptionRepo:  redemptionRepo,
	}
}

// Execute runs the function directly without any transaction wrapping.
// Closures are serialized so concurrent callers observe each unit of work
// atomically, matching the isolation a database transaction provides.
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	return fn(s)
}

// AccountRepo returns the wrapped account repository.
func (s *NoOpTransactionScope) AccountRepo() ledger.AccountRepository {
	return s.accountRepo
}

// TransactionRepo returns the wrapped transaction repository.
func (s *NoOpTransactionScope) TransactionRepo() ledger.TransactionRepository {
	return s.transactionRepo
}

// MilestoneRepo returns the wrapped milestone repository.
func (s *NoOpTransactionScope) MilestoneRepo() ledger.MilestoneRepository {
	return s.milestoneRepo
}

// RedemptionRepo returns the wrapped redemption repository.
func (s *NoOpTransactionScope) RedemptionRepo() ledger.RedemptionRepository {
	return s.redemptionRepo
}

// PublishEvents records the events in memory so tests can assert on what a
// committed operation would have delivered.
func (s *NoOpTransactionScope) PublishEvents(_ context.Context, events ...shared.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, events...)
	return nil
}

// PublishedEvents returns every event staged through the scope.
func (s *NoOpTransactionScope) PublishedEvents() []shared.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.DomainEvent(nil), s.published...)
}
