package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB creates a GORM DB backed by sqlmock for repository tests
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormAccountRepository_FindByID(t *testing.T) {
	t.Run("finds existing account", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db)

		accountID := uuid.New()
		tenantID := uuid.New()
		holderID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "holder_id", "kind", "balance", "credit_limit", "version"}).
			AddRow(accountID, tenantID, holderID, "CASH", int64(5000), int64(0), 3)

		mock.ExpectQuery(`SELECT \* FROM "ledger_accounts" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, accountID, 1).
			WillReturnRows(rows)

		account, err := repo.FindByID(context.Background(), tenantID, accountID)

		assert.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, accountID, account.ID)
		assert.Equal(t, ledger.AccountKindCash, account.Kind)
		assert.Equal(t, int64(5000), account.Balance)
		assert.Equal(t, 3, account.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing account", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "ledger_accounts"`).
			WillReturnError(gorm.ErrRecordNotFound)

		account, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())

		assert.Nil(t, account)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindByHolderAndKind(t *testing.T) {
	t.Run("finds account by holder and kind", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db)

		accountID := uuid.New()
		tenantID := uuid.New()
		holderID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "holder_id", "kind", "balance", "credit_limit", "version"}).
			AddRow(accountID, tenantID, holderID, "CREDIT", int64(200000), int64(1000000), 1)

		mock.ExpectQuery(`SELECT \* FROM "ledger_accounts" WHERE tenant_id = \$1 AND holder_id = \$2 AND kind = \$3 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, holderID, "CREDIT", 1).
			WillReturnRows(rows)

		account, err := repo.FindByHolderAndKind(context.Background(), tenantID, holderID, ledger.AccountKindCredit)

		assert.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, int64(800000), account.AvailableCredit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_SaveWithLock(t *testing.T) {
	newVersionedAccount := func(t *testing.T) *ledger.Account {
		t.Helper()
		account, err := ledger.NewAccount(uuid.New(), uuid.New(), ledger.AccountKindCash)
		require.NoError(t, err)
		account.Balance = 1500
		account.IncrementVersion()
		return account
	}

	t.Run("updates when version matches", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db)

		account := newVersionedAccount(t)

		mock.ExpectExec(`UPDATE "ledger_accounts" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), account)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns concurrency conflict on stale version", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db)

		account := newVersionedAccount(t)

		mock.ExpectExec(`UPDATE "ledger_accounts" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), account)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_DistinctTenants(t *testing.T) {
	t.Run("lists distinct tenants", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db)

		tenantA := uuid.New()
		tenantB := uuid.New()

		rows := sqlmock.NewRows([]string{"tenant_id"}).
			AddRow(tenantA).
			AddRow(tenantB)

		mock.ExpectQuery(`SELECT DISTINCT "tenant_id" FROM "ledger_accounts"`).
			WillReturnRows(rows)

		tenants, err := repo.DistinctTenants(context.Background())

		assert.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{tenantA, tenantB}, tenants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindByKind(t *testing.T) {
	t.Run("pages through accounts of one kind", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(db)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "ledger_accounts" WHERE tenant_id = \$1 AND kind = \$2`).
			WithArgs(tenantID, "POINTS").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "holder_id", "kind", "balance", "credit_limit", "version"}).
			AddRow(uuid.New(), tenantID, uuid.New(), "POINTS", int64(100), int64(0), 1).
			AddRow(uuid.New(), tenantID, uuid.New(), "POINTS", int64(900), int64(0), 2)

		mock.ExpectQuery(`SELECT \* FROM "ledger_accounts" WHERE tenant_id = \$1 AND kind = \$2 ORDER BY created_at DESC LIMIT .*`).
			WillReturnRows(rows)

		filter := shared.DefaultFilter()
		page, err := repo.FindByKind(context.Background(), tenantID, ledger.AccountKindPoints, filter)

		assert.NoError(t, err)
		assert.Equal(t, int64(42), page.Total)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 3, page.TotalPages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
