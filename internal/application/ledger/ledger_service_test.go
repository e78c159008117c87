package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
)

func testConfig() Config {
	return Config{
		// one point is worth 10 minor units of discount
		PointsRedemptionRate: decimal.NewFromInt(10),
		MaxRetries:           3,
	}
}

func newTestService(f *testFixture) *LedgerService {
	return NewLedgerService(f.scope, testConfig(), nil)
}

func TestLedgerService_EarnPoints(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	t.Run("awards points and opens the account on first use", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)

		result, err := svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID:   tenantID,
			HolderID:   holderID,
			Points:     500,
			SourceType: ledger.SourceTypeTripPayment,
			SourceID:   "trip-42",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(500), result.Amount)
		assert.Equal(t, int64(500), result.BalanceAfter)
		assert.False(t, result.Replayed)

		account, err := f.accounts.FindByHolderAndKind(ctx, tenantID, holderID, ledger.AccountKindPoints)
		require.NoError(t, err)
		assert.Equal(t, int64(500), account.Balance)
	})

	t.Run("same source twice produces exactly one entry", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)
		req := EarnPointsRequest{
			TenantID:   tenantID,
			HolderID:   holderID,
			Points:     500,
			SourceType: ledger.SourceTypeTripPayment,
			SourceID:   "trip-42",
		}

		first, err := svc.EarnPoints(ctx, req)
		require.NoError(t, err)
		second, err := svc.EarnPoints(ctx, req)
		require.NoError(t, err)

		assert.False(t, first.Replayed)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.TransactionID, second.TransactionID)
		assert.Equal(t, first.BalanceAfter, second.BalanceAfter)

		account, err := f.accounts.FindByHolderAndKind(ctx, tenantID, holderID, ledger.AccountKindPoints)
		require.NoError(t, err)
		assert.Equal(t, int64(500), account.Balance)

		sum, err := f.txns.SumByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.Balance, sum)
	})

	t.Run("key reuse with a different amount is rejected loudly", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)

		_, err := svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 500,
			SourceType: ledger.SourceTypeTripPayment, SourceID: "trip-42",
		})
		require.NoError(t, err)

		_, err = svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 600,
			SourceType: ledger.SourceTypeTripPayment, SourceID: "trip-42",
		})

		assert.ErrorIs(t, err, ledger.ErrIdempotencyConflict)
	})

	t.Run("rejects non-positive points", func(t *testing.T) {
		svc := newTestService(newTestFixture())

		_, err := svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 0,
			SourceType: ledger.SourceTypeTripPayment, SourceID: "trip-42",
		})

		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})

	t.Run("rejects missing source and key", func(t *testing.T) {
		svc := newTestService(newTestFixture())

		_, err := svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 100,
			SourceType: ledger.SourceTypeManual,
		})

		assert.ErrorIs(t, err, ledger.ErrIdempotencyKeyRequired)
	})
}

func TestLedgerService_RedeemPoints(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	seedPoints := func(t *testing.T, svc *LedgerService, points int64) {
		t.Helper()
		_, err := svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: points,
			SourceType: ledger.SourceTypeTripPayment, SourceID: "seed",
		})
		require.NoError(t, err)
	}

	t.Run("deducts points and opens a pending redemption", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)
		seedPoints(t, svc, 500)

		result, err := svc.RedeemPoints(ctx, RedeemPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 100, BookingID: "booking-7",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(1000), result.DiscountAmount)
		assert.Equal(t, ledger.RedemptionStatusPending, result.Redemption.Status)
		assert.Equal(t, int64(-100), result.Transaction.Amount)
		assert.Equal(t, int64(400), result.Transaction.BalanceAfter)
	})

	t.Run("fails on insufficient balance", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)
		seedPoints(t, svc, 50)

		_, err := svc.RedeemPoints(ctx, RedeemPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 100, BookingID: "booking-7",
		})

		assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	})

	t.Run("replay returns the original redemption", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)
		seedPoints(t, svc, 500)
		req := RedeemPointsRequest{TenantID: tenantID, HolderID: holderID, Points: 100, BookingID: "booking-7"}

		first, err := svc.RedeemPoints(ctx, req)
		require.NoError(t, err)
		second, err := svc.RedeemPoints(ctx, req)
		require.NoError(t, err)

		assert.True(t, second.Transaction.Replayed)
		assert.Equal(t, first.Redemption.ID, second.Redemption.ID)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)
		require.NoError(t, err)
		assert.Equal(t, int64(400), balance.Points)
	})

	t.Run("fails for a holder without a points account", func(t *testing.T) {
		svc := newTestService(newTestFixture())

		_, err := svc.RedeemPoints(ctx, RedeemPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 100, BookingID: "booking-7",
		})

		assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	})
}

func TestLedgerService_CancelRedemption(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	setup := func(t *testing.T) (*testFixture, *LedgerService, *RedeemPointsResult) {
		t.Helper()
		f := newTestFixture()
		svc := newTestService(f)
		_, err := svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 500,
			SourceType: ledger.SourceTypeTripPayment, SourceID: "seed",
		})
		require.NoError(t, err)
		redeemed, err := svc.RedeemPoints(ctx, RedeemPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 100, BookingID: "booking-7",
		})
		require.NoError(t, err)
		return f, svc, redeemed
	}

	t.Run("restores the balance to its pre-redeem value", func(t *testing.T) {
		_, svc, redeemed := setup(t)

		cancelled, err := svc.CancelRedemption(ctx, CancelRedemptionRequest{
			TenantID: tenantID, RedemptionID: redeemed.Redemption.ID, Reason: "booking cancelled",
		})

		require.NoError(t, err)
		assert.Equal(t, ledger.RedemptionStatusCancelled, cancelled.Status)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)
		require.NoError(t, err)
		assert.Equal(t, int64(500), balance.Points)
	})

	t.Run("keeps the original deduction in the log", func(t *testing.T) {
		f, svc, redeemed := setup(t)

		_, err := svc.CancelRedemption(ctx, CancelRedemptionRequest{
			TenantID: tenantID, RedemptionID: redeemed.Redemption.ID, Reason: "booking cancelled",
		})
		require.NoError(t, err)

		account, err := f.accounts.FindByHolderAndKind(ctx, tenantID, holderID, ledger.AccountKindPoints)
		require.NoError(t, err)
		page, err := f.txns.FindByAccount(ctx, tenantID, account.ID, shared.DefaultFilter())
		require.NoError(t, err)
		// seed earn, redeem, compensating earn
		assert.Len(t, page.Items, 3)

		sum, err := f.txns.SumByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(500), sum)
	})

	t.Run("completed redemptions are not cancellable", func(t *testing.T) {
		_, svc, redeemed := setup(t)
		_, err := svc.CompleteRedemption(ctx, tenantID, redeemed.Redemption.ID)
		require.NoError(t, err)

		_, err = svc.CancelRedemption(ctx, CancelRedemptionRequest{
			TenantID: tenantID, RedemptionID: redeemed.Redemption.ID, Reason: "too late",
		})

		assert.ErrorIs(t, err, ledger.ErrNotCancellable)
	})

	t.Run("cancelling twice returns the points once", func(t *testing.T) {
		_, svc, redeemed := setup(t)

		_, err := svc.CancelRedemption(ctx, CancelRedemptionRequest{
			TenantID: tenantID, RedemptionID: redeemed.Redemption.ID, Reason: "first",
		})
		require.NoError(t, err)
		_, err = svc.CancelRedemption(ctx, CancelRedemptionRequest{
			TenantID: tenantID, RedemptionID: redeemed.Redemption.ID, Reason: "second",
		})
		assert.ErrorIs(t, err, ledger.ErrNotCancellable)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)
		require.NoError(t, err)
		assert.Equal(t, int64(500), balance.Points)
	})
}

func TestLedgerService_DebitWallet(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	setup := func(t *testing.T, cash, creditLimit int64) (*testFixture, *LedgerService, uuid.UUID) {
		t.Helper()
		f := newTestFixture()
		svc := newTestService(f)
		accounts, err := svc.OpenAccounts(ctx, OpenAccountsRequest{
			TenantID: tenantID, HolderID: holderID, CreditLimit: creditLimit,
		})
		require.NoError(t, err)

		var cashID uuid.UUID
		for _, account := range accounts {
			if account.Kind == ledger.AccountKindCash {
				cashID = account.ID
			}
		}
		if cash > 0 {
			_, err := svc.CreditWallet(ctx, CreditWalletRequest{
				TenantID: tenantID, AccountID: cashID, Amount: cash,
				SourceType: ledger.SourceTypeCommission, SourceID: "seed",
			})
			require.NoError(t, err)
		}
		return f, svc, cashID
	}

	t.Run("debits cash when the balance covers it", func(t *testing.T) {
		_, svc, cashID := setup(t, 100_000, 0)

		result, err := svc.DebitWallet(ctx, DebitWalletRequest{
			TenantID: tenantID, AccountID: cashID, Amount: 60_000,
			SourceType: ledger.SourceTypeBooking, SourceID: "booking-1",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(60_000), result.CashPortion)
		assert.Equal(t, int64(0), result.CreditPortion)
		require.NotNil(t, result.CashTransaction)
		assert.Nil(t, result.CreditTransaction)
		assert.Equal(t, int64(40_000), result.CashTransaction.BalanceAfter)
	})

	t.Run("shortfall draws on the credit line atomically", func(t *testing.T) {
		_, svc, cashID := setup(t, 50_000, 1_000_000)

		result, err := svc.DebitWallet(ctx, DebitWalletRequest{
			TenantID: tenantID, AccountID: cashID, Amount: 120_000,
			SourceType: ledger.SourceTypeBooking, SourceID: "booking-1",
		})

		require.NoError(t, err)
		assert.Equal(t, int64(50_000), result.CashPortion)
		assert.Equal(t, int64(70_000), result.CreditPortion)
		require.NotNil(t, result.CreditTransaction)
		assert.Equal(t, int64(70_000), result.CreditTransaction.BalanceAfter)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance.Cash)
		assert.Equal(t, int64(70_000), balance.CreditUsed)
		assert.Equal(t, int64(930_000), balance.CreditAvailable)
	})

	t.Run("zero cash draws entirely on credit", func(t *testing.T) {
		_, svc, cashID := setup(t, 0, 1_000_000)

		result, err := svc.DebitWallet(ctx, DebitWalletRequest{
			TenantID: tenantID, AccountID: cashID, Amount: 700_000,
			SourceType: ledger.SourceTypeBooking, SourceID: "booking-1",
		})

		require.NoError(t, err)
		assert.Nil(t, result.CashTransaction)
		assert.Equal(t, int64(700_000), result.CreditPortion)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)
		require.NoError(t, err)
		assert.Equal(t, int64(700_000), balance.CreditUsed)
		assert.Equal(t, int64(300_000), balance.CreditAvailable)
	})

	t.Run("fails when cash plus credit cannot cover", func(t *testing.T) {
		_, svc, cashID := setup(t, 50_000, 100_000)

		_, err := svc.DebitWallet(ctx, DebitWalletRequest{
			TenantID: tenantID, AccountID: cashID, Amount: 150_001,
			SourceType: ledger.SourceTypeBooking, SourceID: "booking-1",
		})

		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)
		require.NoError(t, err)
		assert.Equal(t, int64(50_000), balance.Cash)
		assert.Equal(t, int64(0), balance.CreditUsed)
	})

	t.Run("fails without a credit line when cash is short", func(t *testing.T) {
		_, svc, cashID := setup(t, 50_000, 0)

		_, err := svc.DebitWallet(ctx, DebitWalletRequest{
			TenantID: tenantID, AccountID: cashID, Amount: 60_000,
			SourceType: ledger.SourceTypeBooking, SourceID: "booking-1",
		})

		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	})

	t.Run("replay returns the original split without double debiting", func(t *testing.T) {
		_, svc, cashID := setup(t, 50_000, 1_000_000)
		req := DebitWalletRequest{
			TenantID: tenantID, AccountID: cashID, Amount: 120_000,
			SourceType: ledger.SourceTypeBooking, SourceID: "booking-1",
		}

		first, err := svc.DebitWallet(ctx, req)
		require.NoError(t, err)
		second, err := svc.DebitWallet(ctx, req)
		require.NoError(t, err)

		assert.True(t, second.Replayed)
		assert.Equal(t, first.CashPortion, second.CashPortion)
		assert.Equal(t, first.CreditPortion, second.CreditPortion)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance.Cash)
		assert.Equal(t, int64(70_000), balance.CreditUsed)
	})

	t.Run("rejects non-cash accounts", func(t *testing.T) {
		f, svc, _ := setup(t, 0, 1_000_000)
		credit, err := f.accounts.FindByHolderAndKind(ctx, tenantID, holderID, ledger.AccountKindCredit)
		require.NoError(t, err)

		_, err = svc.DebitWallet(ctx, DebitWalletRequest{
			TenantID: tenantID, AccountID: credit.ID, Amount: 100,
			SourceType: ledger.SourceTypeBooking, SourceID: "booking-1",
		})

		assert.Error(t, err)
	})
}

func TestLedgerService_RepayCredit(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	setup := func(t *testing.T) (*LedgerService, uuid.UUID) {
		t.Helper()
		f := newTestFixture()
		svc := newTestService(f)
		accounts, err := svc.OpenAccounts(ctx, OpenAccountsRequest{
			TenantID: tenantID, HolderID: holderID, CreditLimit: 1_000_000,
		})
		require.NoError(t, err)

		var cashID, creditID uuid.UUID
		for _, account := range accounts {
			switch account.Kind {
			case ledger.AccountKindCash:
				cashID = account.ID
			case ledger.AccountKindCredit:
				creditID = account.ID
			}
		}
		_, err = svc.DebitWallet(ctx, DebitWalletRequest{
			TenantID: tenantID, AccountID: cashID, Amount: 700_000,
			SourceType: ledger.SourceTypeBooking, SourceID: "booking-1",
		})
		require.NoError(t, err)
		return svc, creditID
	}

	t.Run("overpaying past zero is rejected, exact repayment clears the debt", func(t *testing.T) {
		svc, creditID := setup(t)

		_, err := svc.RepayCredit(ctx, RepayCreditRequest{
			TenantID: tenantID, AccountID: creditID, Amount: 700_001,
		})
		assert.ErrorIs(t, err, ledger.ErrAmountExceedsDebt)

		result, err := svc.RepayCredit(ctx, RepayCreditRequest{
			TenantID: tenantID, AccountID: creditID, Amount: 700_000,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.BalanceAfter)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance.CreditUsed)
		assert.Equal(t, int64(1_000_000), balance.CreditAvailable)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc, creditID := setup(t)

		_, err := svc.RepayCredit(ctx, RepayCreditRequest{
			TenantID: tenantID, AccountID: creditID, Amount: 0,
		})

		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})
}

func TestLedgerService_GetBalance(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	t.Run("reads zeros for a holder without accounts", func(t *testing.T) {
		svc := newTestService(newTestFixture())

		balance, err := svc.GetBalance(ctx, tenantID, holderID)

		require.NoError(t, err)
		assert.Equal(t, int64(0), balance.Cash)
		assert.Equal(t, int64(0), balance.Points)
		assert.Equal(t, int64(0), balance.CreditAvailable)
	})

	t.Run("reflects committed writes", func(t *testing.T) {
		svc := newTestService(newTestFixture())
		_, err := svc.OpenAccounts(ctx, OpenAccountsRequest{
			TenantID: tenantID, HolderID: holderID, CreditLimit: 500_000,
		})
		require.NoError(t, err)
		_, err = svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 250,
			SourceType: ledger.SourceTypeReferral, SourceID: "ref-1",
		})
		require.NoError(t, err)

		balance, err := svc.GetBalance(ctx, tenantID, holderID)

		require.NoError(t, err)
		assert.Equal(t, int64(250), balance.Points)
		assert.Equal(t, int64(500_000), balance.CreditLimit)
		assert.Equal(t, int64(500_000), balance.CreditAvailable)
	})
}

func TestLedgerService_SetCreditLimit(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	svc := newTestService(newTestFixture())
	accounts, err := svc.OpenAccounts(ctx, OpenAccountsRequest{
		TenantID: tenantID, HolderID: holderID, CreditLimit: 100_000,
	})
	require.NoError(t, err)

	var creditID uuid.UUID
	for _, account := range accounts {
		if account.Kind == ledger.AccountKindCredit {
			creditID = account.ID
		}
	}

	updated, err := svc.SetCreditLimit(ctx, tenantID, creditID, 250_000)
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), updated.CreditLimit)
}

func TestLedgerService_EventStaging(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	holderID := uuid.New()

	t.Run("an earn stages a recorded-transaction event", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)

		_, err := svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 500,
			SourceType: ledger.SourceTypeTripPayment, SourceID: "trip-42",
		})
		require.NoError(t, err)

		events := f.scope.PublishedEvents()
		require.Len(t, events, 1)
		assert.Equal(t, ledger.EventTypeTransactionRecorded, events[0].EventType())
	})

	t.Run("a replay stages nothing new", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)
		req := EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 500,
			SourceType: ledger.SourceTypeTripPayment, SourceID: "trip-42",
		}

		_, err := svc.EarnPoints(ctx, req)
		require.NoError(t, err)
		_, err = svc.EarnPoints(ctx, req)
		require.NoError(t, err)

		assert.Len(t, f.scope.PublishedEvents(), 1)
	})

	t.Run("a rejected operation stages nothing", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)

		_, err := svc.RedeemPoints(ctx, RedeemPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 100, BookingID: "booking-7",
		})
		require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

		assert.Empty(t, f.scope.PublishedEvents())
	})

	t.Run("a cancellation stages the compensating earn and the status change", func(t *testing.T) {
		f := newTestFixture()
		svc := newTestService(f)
		_, err := svc.EarnPoints(ctx, EarnPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 500,
			SourceType: ledger.SourceTypeTripPayment, SourceID: "seed",
		})
		require.NoError(t, err)
		redeemed, err := svc.RedeemPoints(ctx, RedeemPointsRequest{
			TenantID: tenantID, HolderID: holderID, Points: 100, BookingID: "booking-7",
		})
		require.NoError(t, err)
		before := len(f.scope.PublishedEvents())

		_, err = svc.CancelRedemption(ctx, CancelRedemptionRequest{
			TenantID: tenantID, RedemptionID: redeemed.Redemption.ID, Reason: "booking cancelled",
		})
		require.NoError(t, err)

		staged := f.scope.PublishedEvents()[before:]
		types := make([]string, 0, len(staged))
		for _, event := range staged {
			types = append(types, event.EventType())
		}
		assert.ElementsMatch(t, []string{
			ledger.EventTypeTransactionRecorded,
			ledger.EventTypeRedemptionCancelled,
		}, types)
	})
}
