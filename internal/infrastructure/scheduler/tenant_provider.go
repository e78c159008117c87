package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/voyago/backend/internal/domain/ledger"
)

// AccountTenantProvider derives the active tenant set from the ledger
// account repository. A tenant is active as long as it holds at least
// one account.
type AccountTenantProvider struct {
	accounts ledger.AccountRepository
}

// NewAccountTenantProvider creates a tenant provider backed by the
// account repository
func NewAccountTenantProvider(accounts ledger.AccountRepository) *AccountTenantProvider {
	return &AccountTenantProvider{accounts: accounts}
}

func (p *AccountTenantProvider) GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return p.accounts.DistinctTenants(ctx)
}

var _ TenantProvider = (*AccountTenantProvider)(nil)
