package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"gorm.io/gorm"
)

func newTestTransaction(t *testing.T) *ledger.Transaction {
	t.Helper()
	txn, err := ledger.NewTransaction(
		uuid.New(), uuid.New(),
		ledger.TransactionKindEarn, 500,
		ledger.SourceTypeTripPayment, "trip-77",
	)
	require.NoError(t, err)
	txn.BalanceAfter = 500
	return txn.WithDerivedIdempotencyKey()
}

func TestGormTransactionRepository_Save(t *testing.T) {
	t.Run("inserts a new entry", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(db)

		mock.ExpectExec(`INSERT INTO "ledger_transactions"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Save(context.Background(), newTestTransaction(t))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation to ErrAlreadyExists", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(db)

		mock.ExpectExec(`INSERT INTO "ledger_transactions"`).
			WillReturnError(gorm.ErrDuplicatedKey)

		err := repo.Save(context.Background(), newTestTransaction(t))

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionRepository_FindByIdempotencyKey(t *testing.T) {
	t.Run("finds prior entry by key", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(db)

		accountID := uuid.New()
		entryID := uuid.New()
		key := "trip_payment:trip-77"

		rows := sqlmock.NewRows([]string{"id", "account_id", "kind", "amount", "balance_after", "source_type", "source_id", "idempotency_key", "recorded_at"}).
			AddRow(entryID, accountID, "EARN", int64(500), int64(500), "trip_payment", "trip-77", key, time.Now())

		mock.ExpectQuery(`SELECT \* FROM "ledger_transactions" WHERE account_id = \$1 AND idempotency_key = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(accountID, key, 1).
			WillReturnRows(rows)

		entry, err := repo.FindByIdempotencyKey(context.Background(), accountID, key)

		assert.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, entryID, entry.ID)
		assert.True(t, entry.Matches(ledger.TransactionKindEarn, 500))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when no entry carries the key", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "ledger_transactions"`).
			WillReturnError(gorm.ErrRecordNotFound)

		entry, err := repo.FindByIdempotencyKey(context.Background(), uuid.New(), "booking:b-1")

		assert.Nil(t, entry)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionRepository_SumByAccount(t *testing.T) {
	t.Run("returns signed sum of all entries", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(db)

		accountID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) as total FROM "ledger_transactions" WHERE account_id = \$1`).
			WithArgs(accountID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(-250)))

		total, err := repo.SumByAccount(context.Background(), accountID)

		assert.NoError(t, err)
		assert.Equal(t, int64(-250), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionRepository_SumByKindsBefore(t *testing.T) {
	t.Run("sums entries of the given kinds before the cutoff", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(db)

		accountID := uuid.New()
		cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) as total FROM "ledger_transactions" WHERE account_id = \$1 AND kind IN \(\$2,\$3\) AND recorded_at < \$4`).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(1200)))

		total, err := repo.SumByKindsBefore(context.Background(), accountID,
			[]ledger.TransactionKind{ledger.TransactionKindEarn, ledger.TransactionKindRedeem}, cutoff)

		assert.NoError(t, err)
		assert.Equal(t, int64(1200), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short-circuits on empty kinds without querying", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(db)

		total, err := repo.SumByKindsBefore(context.Background(), uuid.New(), nil, time.Now())

		assert.NoError(t, err)
		assert.Zero(t, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionRepository_CountByAccountAndSource(t *testing.T) {
	t.Run("counts entries by source type", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormTransactionRepository(db)

		accountID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "ledger_transactions" WHERE account_id = \$1 AND source_type = \$2`).
			WithArgs(accountID, "trip_payment").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

		count, err := repo.CountByAccountAndSource(context.Background(), accountID, ledger.SourceTypeTripPayment)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
