package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/backend/internal/domain/ledger"
)

func newExpiryFixture(retentionMonths int) (*testFixture, *LedgerService, *ExpiryService) {
	f := newTestFixture()
	ledgerSvc := newTestService(f)
	expirySvc := NewExpiryService(f.scope, ExpiryConfig{RetentionMonths: retentionMonths}, nil)
	return f, ledgerSvc, expirySvc
}

// seedAgedEarn records an earn entry and backdates it so it falls before the
// retention cutoff
func seedAgedEarn(t *testing.T, f *testFixture, tenantID, holderID uuid.UUID, points int64, age time.Duration) *ledger.Account {
	t.Helper()
	ctx := context.Background()

	account, err := f.accounts.FindByHolderAndKind(ctx, tenantID, holderID, ledger.AccountKindPoints)
	if err != nil {
		account, err = ledger.NewAccount(tenantID, holderID, ledger.AccountKindPoints)
		require.NoError(t, err)
		require.NoError(t, f.accounts.Save(ctx, account))
	}

	txn, err := ledger.NewTransaction(tenantID, account.ID, ledger.TransactionKindEarn, points,
		ledger.SourceTypeTripPayment, uuid.NewString())
	require.NoError(t, err)
	txn.WithDerivedIdempotencyKey()
	txn.RecordedAt = time.Now().Add(-age)
	require.NoError(t, account.Apply(txn))
	require.NoError(t, f.txns.Save(ctx, txn))
	require.NoError(t, f.accounts.SaveWithLock(ctx, account))
	return account
}

func TestExpiryService_SweepExpired(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()
	asOf := time.Now()

	t.Run("expires points older than the retention window", func(t *testing.T) {
		f, _, svc := newExpiryFixture(24)
		account := seedAgedEarn(t, f, tenantID, holderID, 500, 25*30*24*time.Hour)

		result, err := svc.SweepExpired(ctx, tenantID, asOf)

		require.NoError(t, err)
		assert.Equal(t, 1, result.ExpiredCount)
		assert.Equal(t, int64(500), result.TotalExpiredPoints)

		stored, err := f.accounts.FindByID(ctx, tenantID, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.Balance)

		sum, err := f.txns.SumByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.Balance, sum)
	})

	t.Run("leaves fresh points alone", func(t *testing.T) {
		f, _, svc := newExpiryFixture(24)
		seedAgedEarn(t, f, tenantID, holderID, 500, 24*time.Hour)

		result, err := svc.SweepExpired(ctx, tenantID, asOf)

		require.NoError(t, err)
		assert.Equal(t, 0, result.ExpiredCount)
		assert.Equal(t, int64(0), result.TotalExpiredPoints)
	})

	t.Run("spent points are not expired again", func(t *testing.T) {
		f, ledgerSvc, svc := newExpiryFixture(24)
		seedAgedEarn(t, f, tenantID, holderID, 500, 25*30*24*time.Hour)

		// 400 of the aged points were already redeemed
		_, err := ledgerSvc.RedeemPoints(ctx, RedeemPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 400, BookingID: "booking-1",
		})
		require.NoError(t, err)

		result, err := svc.SweepExpired(ctx, tenantID, asOf)

		require.NoError(t, err)
		assert.Equal(t, int64(100), result.TotalExpiredPoints)
	})

	t.Run("running the same sweep twice is a no-op", func(t *testing.T) {
		f, _, svc := newExpiryFixture(24)
		account := seedAgedEarn(t, f, tenantID, holderID, 500, 25*30*24*time.Hour)

		first, err := svc.SweepExpired(ctx, tenantID, asOf)
		require.NoError(t, err)
		second, err := svc.SweepExpired(ctx, tenantID, asOf)
		require.NoError(t, err)

		assert.Equal(t, int64(500), first.TotalExpiredPoints)
		assert.Equal(t, int64(0), second.TotalExpiredPoints)
		assert.Equal(t, 0, second.ExpiredCount)

		stored, err := f.accounts.FindByID(ctx, tenantID, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.Balance)
	})

	t.Run("mixed ages expire only the aged portion", func(t *testing.T) {
		f, _, svc := newExpiryFixture(24)
		seedAgedEarn(t, f, tenantID, holderID, 300, 25*30*24*time.Hour)
		seedAgedEarn(t, f, tenantID, holderID, 200, 24*time.Hour)

		result, err := svc.SweepExpired(ctx, tenantID, asOf)

		require.NoError(t, err)
		assert.Equal(t, int64(300), result.TotalExpiredPoints)

		account, err := f.accounts.FindByHolderAndKind(ctx, tenantID, holderID, ledger.AccountKindPoints)
		require.NoError(t, err)
		assert.Equal(t, int64(200), account.Balance)
	})
}

func TestExpiryService_SweepAllTenants(t *testing.T) {
	ctx := context.Background()
	asOf := time.Now()

	f, _, svc := newExpiryFixture(24)
	tenantA := uuid.New()
	tenantB := uuid.New()
	seedAgedEarn(t, f, tenantA, uuid.New(), 100, 25*30*24*time.Hour)
	seedAgedEarn(t, f, tenantB, uuid.New(), 250, 25*30*24*time.Hour)

	result, err := svc.SweepAllTenants(ctx, asOf)

	require.NoError(t, err)
	assert.Equal(t, 2, result.ExpiredCount)
	assert.Equal(t, int64(350), result.TotalExpiredPoints)
}
