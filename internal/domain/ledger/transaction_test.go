package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	tenantID := uuid.New()
	accountID := uuid.New()

	t.Run("creates valid earn transaction", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, accountID, TransactionKindEarn, 500, SourceTypeTripPayment, "trip-42")

		require.NoError(t, err)
		assert.NotNil(t, txn)
		assert.NotEqual(t, uuid.Nil, txn.ID)
		assert.Equal(t, tenantID, txn.TenantID)
		assert.Equal(t, accountID, txn.AccountID)
		assert.Equal(t, TransactionKindEarn, txn.Kind)
		assert.Equal(t, int64(500), txn.Amount)
		assert.Equal(t, SourceTypeTripPayment, txn.SourceType)
		assert.Equal(t, "trip-42", txn.SourceID)
		assert.False(t, txn.HasIdempotencyKey())
		assert.False(t, txn.RecordedAt.IsZero())
	})

	t.Run("creates valid debit transaction with negative amount", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, accountID, TransactionKindDebit, -70000, SourceTypeBooking, "booking-7")

		require.NoError(t, err)
		assert.Equal(t, int64(-70000), txn.Amount)
	})

	t.Run("fails with nil tenant ID", func(t *testing.T) {
		txn, err := NewTransaction(uuid.Nil, accountID, TransactionKindEarn, 500, SourceTypeTripPayment, "trip-42")

		assert.Error(t, err)
		assert.Nil(t, txn)
		assert.Contains(t, err.Error(), "Tenant ID cannot be empty")
	})

	t.Run("fails with nil account ID", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, uuid.Nil, TransactionKindEarn, 500, SourceTypeTripPayment, "trip-42")

		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.Nil(t, txn)
	})

	t.Run("fails with invalid kind", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, accountID, TransactionKind("BOGUS"), 500, SourceTypeTripPayment, "trip-42")

		assert.Error(t, err)
		assert.Nil(t, txn)
	})

	t.Run("fails with zero amount", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, accountID, TransactionKindEarn, 0, SourceTypeTripPayment, "trip-42")

		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Nil(t, txn)
	})

	t.Run("fails when sign contradicts kind direction", func(t *testing.T) {
		_, err := NewTransaction(tenantID, accountID, TransactionKindEarn, -500, SourceTypeTripPayment, "trip-42")
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = NewTransaction(tenantID, accountID, TransactionKindRedeem, 500, SourceTypeRedemption, "red-1")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("fails with invalid source type", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, accountID, TransactionKindEarn, 500, SourceType("lottery"), "t-1")

		assert.Error(t, err)
		assert.Nil(t, txn)
	})
}

func TestTransaction_IdempotencyKey(t *testing.T) {
	tenantID := uuid.New()
	accountID := uuid.New()

	t.Run("derives key from source reference", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, accountID, TransactionKindEarn, 500, SourceTypeTripPayment, "trip-42")
		require.NoError(t, err)

		txn.WithDerivedIdempotencyKey()

		require.True(t, txn.HasIdempotencyKey())
		assert.Equal(t, "trip_payment:trip-42", *txn.IdempotencyKey)
	})

	t.Run("explicit key wins over derivation", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, accountID, TransactionKindEarn, 100, SourceTypeMilestone, "m-1")
		require.NoError(t, err)

		txn.WithIdempotencyKey("milestone:abc")

		require.True(t, txn.HasIdempotencyKey())
		assert.Equal(t, "milestone:abc", *txn.IdempotencyKey)
	})

	t.Run("empty key does not count as set", func(t *testing.T) {
		txn, err := NewTransaction(tenantID, accountID, TransactionKindEarn, 100, SourceTypeManual, "")
		require.NoError(t, err)

		txn.WithIdempotencyKey("")

		assert.False(t, txn.HasIdempotencyKey())
	})
}

func TestTransaction_Matches(t *testing.T) {
	txn, err := NewTransaction(uuid.New(), uuid.New(), TransactionKindEarn, 500, SourceTypeTripPayment, "trip-42")
	require.NoError(t, err)

	t.Run("matches same payload", func(t *testing.T) {
		assert.True(t, txn.Matches(TransactionKindEarn, 500))
	})

	t.Run("rejects different amount", func(t *testing.T) {
		assert.False(t, txn.Matches(TransactionKindEarn, 600))
	})

	t.Run("rejects different kind", func(t *testing.T) {
		assert.False(t, txn.Matches(TransactionKindRedeem, 500))
	})
}

func TestTransactionKind_Direction(t *testing.T) {
	increases := []TransactionKind{TransactionKindEarn, TransactionKindCredit, TransactionKindRefund}
	decreases := []TransactionKind{TransactionKindRedeem, TransactionKindDebit, TransactionKindRepayment, TransactionKindExpiry}

	for _, k := range increases {
		assert.True(t, k.IsIncrease(), k.String())
		assert.False(t, k.IsDecrease(), k.String())
	}
	for _, k := range decreases {
		assert.True(t, k.IsDecrease(), k.String())
		assert.False(t, k.IsIncrease(), k.String())
	}
}

func TestDeriveIdempotencyKey(t *testing.T) {
	assert.Equal(t, "booking:b-9", DeriveIdempotencyKey(SourceTypeBooking, "b-9"))
	assert.Equal(t, "expiry_sweep:acc:2026-08", DeriveIdempotencyKey(SourceTypeExpirySweep, "acc:2026-08"))
}
