package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
)

// In-memory repositories backing the NoOpTransactionScope in service tests.
// They enforce the same uniqueness and optimistic-locking semantics as the
// database-backed implementations so the idempotency and conflict paths are
// exercised for real.

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*ledger.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[uuid.UUID]*ledger.Account)}
}

func copyAccount(a *ledger.Account) *ledger.Account {
	c := *a
	c.ClearDomainEvents()
	return &c
}

func (m *memAccountRepo) Save(ctx context.Context, account *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.ID != account.ID &&
			existing.TenantID == account.TenantID &&
			existing.HolderID == account.HolderID &&
			existing.Kind == account.Kind {
			return shared.ErrAlreadyExists
		}
	}
	m.accounts[account.ID] = copyAccount(account)
	return nil
}

func (m *memAccountRepo) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.accounts[account.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version >= account.Version {
		return shared.ErrConcurrencyConflict
	}
	m.accounts[account.ID] = copyAccount(account)
	return nil
}

func (m *memAccountRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok || account.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return copyAccount(account), nil
}

func (m *memAccountRepo) FindByHolderAndKind(ctx context.Context, tenantID, holderID uuid.UUID, kind ledger.AccountKind) (*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.TenantID == tenantID && account.HolderID == holderID && account.Kind == kind {
			return copyAccount(account), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memAccountRepo) FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID) ([]*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*ledger.Account
	for _, account := range m.accounts {
		if account.TenantID == tenantID && account.HolderID == holderID {
			result = append(result, copyAccount(account))
		}
	}
	return result, nil
}

func (m *memAccountRepo) FindByKind(ctx context.Context, tenantID uuid.UUID, kind ledger.AccountKind, filter shared.Filter) (shared.Paginated[*ledger.Account], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*ledger.Account
	for _, account := range m.accounts {
		if account.TenantID == tenantID && account.Kind == kind {
			matched = append(matched, copyAccount(account))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID.String() < matched[j].ID.String() })

	start := (filter.Page - 1) * filter.PageSize
	end := start + filter.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return shared.NewPaginated(matched[start:end], int64(len(matched)), filter.Page, filter.PageSize), nil
}

func (m *memAccountRepo) DistinctTenants(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var tenants []uuid.UUID
	for _, account := range m.accounts {
		if !seen[account.TenantID] {
			seen[account.TenantID] = true
			tenants = append(tenants, account.TenantID)
		}
	}
	return tenants, nil
}

type memTransactionRepo struct {
	mu      sync.Mutex
	entries []*ledger.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{}
}

func (m *memTransactionRepo) Save(ctx context.Context, txn *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn.HasIdempotencyKey() {
		for _, existing := range m.entries {
			if existing.AccountID == txn.AccountID && existing.HasIdempotencyKey() &&
				*existing.IdempotencyKey == *txn.IdempotencyKey {
				return shared.ErrAlreadyExists
			}
		}
	}
	c := *txn
	m.entries = append(m.entries, &c)
	return nil
}

func (m *memTransactionRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.entries {
		if txn.ID == id && txn.TenantID == tenantID {
			c := *txn
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memTransactionRepo) FindByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.entries {
		if txn.AccountID == accountID && txn.HasIdempotencyKey() && *txn.IdempotencyKey == key {
			c := *txn
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memTransactionRepo) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[*ledger.Transaction], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*ledger.Transaction
	for _, txn := range m.entries {
		if txn.TenantID == tenantID && txn.AccountID == accountID {
			c := *txn
			matched = append(matched, &c)
		}
	}
	return shared.NewPaginated(matched, int64(len(matched)), filter.Page, filter.PageSize), nil
}

func (m *memTransactionRepo) SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, txn := range m.entries {
		if txn.AccountID == accountID {
			sum += txn.Amount
		}
	}
	return sum, nil
}

func (m *memTransactionRepo) SumByKindsBefore(ctx context.Context, accountID uuid.UUID, kinds []ledger.TransactionKind, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, txn := range m.entries {
		if txn.AccountID != accountID || !txn.RecordedAt.Before(before) {
			continue
		}
		for _, kind := range kinds {
			if txn.Kind == kind {
				sum += txn.Amount
				break
			}
		}
	}
	return sum, nil
}

func (m *memTransactionRepo) CountByAccountAndSource(ctx context.Context, accountID uuid.UUID, sourceType ledger.SourceType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, txn := range m.entries {
		if txn.AccountID == accountID && txn.SourceType == sourceType {
			count++
		}
	}
	return count, nil
}

type memMilestoneRepo struct {
	mu         sync.Mutex
	milestones map[uuid.UUID]*ledger.Milestone
}

func newMemMilestoneRepo() *memMilestoneRepo {
	return &memMilestoneRepo{milestones: make(map[uuid.UUID]*ledger.Milestone)}
}

func copyMilestone(m *ledger.Milestone) *ledger.Milestone {
	c := *m
	c.ClearDomainEvents()
	return &c
}

func (r *memMilestoneRepo) Save(ctx context.Context, milestone *ledger.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.milestones {
		if existing.ID != milestone.ID && existing.NaturalKey() == milestone.NaturalKey() {
			return shared.ErrAlreadyExists
		}
	}
	r.milestones[milestone.ID] = copyMilestone(milestone)
	return nil
}

func (r *memMilestoneRepo) SaveWithLock(ctx context.Context, milestone *ledger.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.milestones[milestone.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version >= milestone.Version {
		return shared.ErrConcurrencyConflict
	}
	r.milestones[milestone.ID] = copyMilestone(milestone)
	return nil
}

func (r *memMilestoneRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	milestone, ok := r.milestones[id]
	if !ok || milestone.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return copyMilestone(milestone), nil
}

func (r *memMilestoneRepo) FindByHolderAndRule(ctx context.Context, tenantID, holderID uuid.UUID, ruleID string) (*ledger.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, milestone := range r.milestones {
		if milestone.TenantID == tenantID && milestone.HolderID == holderID && milestone.RuleID == ruleID {
			return copyMilestone(milestone), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMilestoneRepo) FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID) ([]*ledger.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*ledger.Milestone
	for _, milestone := range r.milestones {
		if milestone.TenantID == tenantID && milestone.HolderID == holderID {
			result = append(result, copyMilestone(milestone))
		}
	}
	return result, nil
}

func (r *memMilestoneRepo) FindUnpaid(ctx context.Context, tenantID uuid.UUID, limit int) ([]*ledger.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*ledger.Milestone
	for _, milestone := range r.milestones {
		if milestone.TenantID == tenantID && !milestone.IsPaid() {
			result = append(result, copyMilestone(milestone))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AchievedAt.Before(result[j].AchievedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memRedemptionRepo struct {
	mu          sync.Mutex
	redemptions map[uuid.UUID]*ledger.Redemption
}

func newMemRedemptionRepo() *memRedemptionRepo {
	return &memRedemptionRepo{redemptions: make(map[uuid.UUID]*ledger.Redemption)}
}

func copyRedemption(r *ledger.Redemption) *ledger.Redemption {
	c := *r
	c.ClearDomainEvents()
	return &c
}

func (m *memRedemptionRepo) Save(ctx context.Context, redemption *ledger.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redemptions[redemption.ID] = copyRedemption(redemption)
	return nil
}

func (m *memRedemptionRepo) SaveWithLock(ctx context.Context, redemption *ledger.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.redemptions[redemption.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version >= redemption.Version {
		return shared.ErrConcurrencyConflict
	}
	m.redemptions[redemption.ID] = copyRedemption(redemption)
	return nil
}

func (m *memRedemptionRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	redemption, ok := m.redemptions[id]
	if !ok || redemption.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return copyRedemption(redemption), nil
}

func (m *memRedemptionRepo) FindByBooking(ctx context.Context, tenantID uuid.UUID, bookingID string) (*ledger.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, redemption := range m.redemptions {
		if redemption.TenantID == tenantID && redemption.BookingID == bookingID {
			return copyRedemption(redemption), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRedemptionRepo) FindByHolder(ctx context.Context, tenantID, holderID uuid.UUID, filter shared.Filter) (shared.Paginated[*ledger.Redemption], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*ledger.Redemption
	for _, redemption := range m.redemptions {
		if redemption.TenantID == tenantID && redemption.HolderID == holderID {
			result = append(result, copyRedemption(redemption))
		}
	}
	return shared.NewPaginated(result, int64(len(result)), filter.Page, filter.PageSize), nil
}

// testFixture bundles the in-memory repositories behind a NoOpTransactionScope
type testFixture struct {
	scope       *NoOpTransactionScope
	accounts    *memAccountRepo
	txns        *memTransactionRepo
	milestones  *memMilestoneRepo
	redemptions *memRedemptionRepo
}

func newTestFixture() *testFixture {
	accounts := newMemAccountRepo()
	txns := newMemTransactionRepo()
	milestones := newMemMilestoneRepo()
	redemptions := newMemRedemptionRepo()
	return &testFixture{
		scope:       NewNoOpTransactionScope(accounts, txns, milestones, redemptions),
		accounts:    accounts,
		txns:        txns,
		milestones:  milestones,
		redemptions: redemptions,
	}
}
