package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries bounds the optimistic-lock retry loop on mutating
	// operations. Conflicts are expected under concurrent debits and resolve
	// by re-reading the account and re-validating.
	DefaultMaxRetries = 3
)

// Config carries the externally injected ledger policy.
type Config struct {
	// PointsRedemptionRate is the discount value of one point in minor
	// currency units. Policy, not ledger logic, so it arrives as
	// configuration.
	PointsRedemptionRate decimal.Decimal
	// MaxRetries bounds the optimistic-lock retry loop.
	MaxRetries int
}

// DiscountFor converts a point amount into a discount in minor currency
// units, rounding down.
func (c Config) DiscountFor(points int64) int64 {
	return c.PointsRedemptionRate.Mul(decimal.NewFromInt(points)).IntPart()
}

// LedgerService exposes the mutating credit/debit operations and the balance
// reads of the ledger core. Every mutation runs inside one transaction scope:
// the log insert, the cached balance update and any lifecycle row commit or
// roll back together. Races on the same account surface as optimistic-lock
// conflicts and are retried with a fresh read.
type LedgerService struct {
	txScope TransactionScope
	config  Config
	logger  *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	txScope TransactionScope,
	config Config,
	logger *zap.Logger,
) *LedgerService {
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		txScope: txScope,
		config:  config,
		logger:  logger,
	}
}

// TransactionResult is the caller-facing view of a recorded ledger entry
type TransactionResult struct {
	TransactionID uuid.UUID              `json:"transaction_id"`
	AccountID     uuid.UUID              `json:"account_id"`
	Kind          ledger.TransactionKind `json:"kind"`
	Amount        int64                  `json:"amount"`
	BalanceAfter  int64                  `json:"balance_after"`
	// Replayed is true when an idempotent retry returned the previously
	// recorded entry instead of creating a new one
	Replayed bool `json:"replayed"`
}

func newTransactionResult(t *ledger.Transaction, replayed bool) *TransactionResult {
	return &TransactionResult{
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Kind:          t.Kind,
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Replayed:      replayed,
	}
}

// BalanceSummary is the derived balance view across a holder's accounts
type BalanceSummary struct {
	HolderID        uuid.UUID `json:"holder_id"`
	Cash            int64     `json:"cash"`
	CreditUsed      int64     `json:"credit_used"`
	CreditLimit     int64     `json:"credit_limit"`
	CreditAvailable int64     `json:"credit_available"`
	Points          int64     `json:"points"`
}

// withRetry re-runs op while it fails with an optimistic-lock conflict.
// A concurrent duplicate insert is reported the same way so the retry's
// fresh read can find and return the winner's entry.
func (s *LedgerService) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		err = op(ctx)
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		s.logger.Debug("retrying ledger operation after version conflict",
			zap.Int("attempt", attempt+1))
	}
	return err
}

// appendEntry is the atomic insert-or-return-existing primitive. When the
// transaction carries an idempotency key and a prior entry with that key
// exists, the prior entry is returned unchanged; a key reuse with a different
// payload is rejected. Otherwise the transaction is validated against the
// account, appended to the log and the cached balance updated. The storage
// layer's unique index on (account_id, idempotency_key) is the authoritative
// guard; a concurrent duplicate insert surfaces as a conflict and is resolved
// by the caller's retry.
func appendEntry(
	ctx context.Context,
	repos TransactionalRepositories,
	account *ledger.Account,
	txn *ledger.Transaction,
) (*ledger.Transaction, bool, error) {
	if txn.HasIdempotencyKey() {
		existing, err := repos.TransactionRepo().FindByIdempotencyKey(ctx, account.ID, *txn.IdempotencyKey)
		if err == nil {
			if !existing.Matches(txn.Kind, txn.Amount) {
				return nil, false, ledger.ErrIdempotencyConflict
			}
			return existing, true, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, false, err
		}
	}

	if err := account.Apply(txn); err != nil {
		return nil, false, err
	}

	if err := repos.TransactionRepo().Save(ctx, txn); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Lost the insert race to a concurrent duplicate. Retry so the
			// fresh read returns the winning entry.
			return nil, false, shared.ErrConcurrencyConflict
		}
		return nil, false, err
	}

	return txn, false, nil
}

// stageEvents drains the aggregates' pending domain events into the scope's
// outbox. The events ride the surrounding transaction: they commit with the
// financial write or vanish with its rollback, never one without the other.
func stageEvents(ctx context.Context, repos TransactionalRepositories, aggregates ...shared.AggregateRoot) error {
	for _, agg := range aggregates {
		events := agg.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if err := repos.PublishEvents(ctx, events...); err != nil {
			return err
		}
		agg.ClearDomainEvents()
	}
	return nil
}

// findOrOpenPointsAccount resolves the holder's points account, opening it on
// first use so earning never fails on a missing account.
func findOrOpenPointsAccount(
	ctx context.Context,
	repos TransactionalRepositories,
	tenantID, holderID uuid.UUID,
) (*ledger.Account, error) {
	account, err := repos.AccountRepo().FindByHolderAndKind(ctx, tenantID, holderID, ledger.AccountKindPoints)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	account, err = ledger.NewAccount(tenantID, holderID, ledger.AccountKindPoints)
	if err != nil {
		return nil, err
	}
	if err := repos.AccountRepo().Save(ctx, account); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Concurrent first use opened it before us
			return repos.AccountRepo().FindByHolderAndKind(ctx, tenantID, holderID, ledger.AccountKindPoints)
		}
		return nil, err
	}
	return account, nil
}

// EarnPointsRequest represents a request to award points to a holder
type EarnPointsRequest struct {
	TenantID       uuid.UUID
	HolderID       uuid.UUID
	Points         int64
	SourceType     ledger.SourceType
	SourceID       string
	Reason         string
	Metadata       string
	IdempotencyKey string // optional; derived from (SourceType, SourceID) when empty
}

// EarnPoints awards points to the holder's points account. Earning is always
// idempotent: a key is required, either caller-supplied or derived from the
// source reference.
func (s *LedgerService) EarnPoints(ctx context.Context, req EarnPointsRequest) (*TransactionResult, error) {
	if req.Points <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	key := req.IdempotencyKey
	if key == "" {
		if req.SourceID == "" {
			return nil, ledger.ErrIdempotencyKeyRequired
		}
		key = ledger.DeriveIdempotencyKey(req.SourceType, req.SourceID)
	}

	var result *TransactionResult
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			account, err := findOrOpenPointsAccount(ctx, repos, req.TenantID, req.HolderID)
			if err != nil {
				return err
			}

			txn, err := ledger.NewTransaction(req.TenantID, account.ID, ledger.TransactionKindEarn, req.Points, req.SourceType, req.SourceID)
			if err != nil {
				return err
			}
			txn.WithIdempotencyKey(key).WithReason(req.Reason).WithMetadata(req.Metadata)

			recorded, replayed, err := appendEntry(ctx, repos, account, txn)
			if err != nil {
				return err
			}
			if !replayed {
				if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
					return err
				}
			}
			result = newTransactionResult(recorded, replayed)
			if !replayed {
				if err := stageEvents(ctx, repos, account); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("points earned",
		zap.String("holder_id", req.HolderID.String()),
		zap.Int64("points", req.Points),
		zap.String("source", string(req.SourceType)),
		zap.Bool("replayed", result.Replayed))
	return result, nil
}

// RedeemPointsRequest represents a request to convert points into a booking discount
type RedeemPointsRequest struct {
	TenantID       uuid.UUID
	HolderID       uuid.UUID
	Points         int64
	BookingID      string
	IdempotencyKey string // optional; derived from the booking when empty
}

// RedeemPointsResult carries the redemption and its ledger entry
type RedeemPointsResult struct {
	Redemption     *ledger.Redemption `json:"redemption"`
	Transaction    *TransactionResult `json:"transaction"`
	DiscountAmount int64              `json:"discount_amount"`
}

// RedeemPoints deducts points and opens a pending redemption worth the
// configured discount value. The deduction and the redemption row are one
// atomic unit.
func (s *LedgerService) RedeemPoints(ctx context.Context, req RedeemPointsRequest) (*RedeemPointsResult, error) {
	if req.Points < 1 {
		return nil, ledger.ErrInvalidAmount
	}
	if req.BookingID == "" {
		return nil, shared.NewDomainError("INVALID_BOOKING", "Booking ID cannot be empty")
	}
	key := req.IdempotencyKey
	if key == "" {
		key = ledger.DeriveIdempotencyKey(ledger.SourceTypeRedemption, req.BookingID)
	}
	discount := s.config.DiscountFor(req.Points)

	var result *RedeemPointsResult
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			account, err := repos.AccountRepo().FindByHolderAndKind(ctx, req.TenantID, req.HolderID, ledger.AccountKindPoints)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.ErrInsufficientBalance
				}
				return err
			}
			if account.Balance < req.Points {
				return ledger.ErrInsufficientBalance
			}

			txn, err := ledger.NewTransaction(req.TenantID, account.ID, ledger.TransactionKindRedeem, -req.Points, ledger.SourceTypeRedemption, req.BookingID)
			if err != nil {
				return err
			}
			txn.WithIdempotencyKey(key).WithReason(fmt.Sprintf("Redeemed against booking %s", req.BookingID))

			recorded, replayed, err := appendEntry(ctx, repos, account, txn)
			if err != nil {
				return err
			}

			if replayed {
				redemption, err := repos.RedemptionRepo().FindByBooking(ctx, req.TenantID, req.BookingID)
				if err != nil {
					return err
				}
				result = &RedeemPointsResult{
					Redemption:     redemption,
					Transaction:    newTransactionResult(recorded, true),
					DiscountAmount: redemption.DiscountAmount,
				}
				return nil
			}

			redemption, err := ledger.NewRedemption(req.TenantID, req.HolderID, req.BookingID, req.Points, discount)
			if err != nil {
				return err
			}
			if err := repos.RedemptionRepo().Save(ctx, redemption); err != nil {
				return err
			}
			if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
				return err
			}

			result = &RedeemPointsResult{
				Redemption:     redemption,
				Transaction:    newTransactionResult(recorded, false),
				DiscountAmount: discount,
			}
			return stageEvents(ctx, repos, account)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("points redeemed",
		zap.String("holder_id", req.HolderID.String()),
		zap.Int64("points", req.Points),
		zap.Int64("discount", result.DiscountAmount),
		zap.String("booking_id", req.BookingID))
	return result, nil
}

// DebitWalletRequest represents a request to debit a cash wallet, drawing on
// the holder's credit line for any shortfall
type DebitWalletRequest struct {
	TenantID       uuid.UUID
	AccountID      uuid.UUID // the CASH account
	Amount         int64     // minor currency units
	SourceType     ledger.SourceType
	SourceID       string
	IdempotencyKey string
}

// DebitWalletResult carries the one or two entries a wallet debit generates
type DebitWalletResult struct {
	CashTransaction   *TransactionResult `json:"cash_transaction,omitempty"`
	CreditTransaction *TransactionResult `json:"credit_transaction,omitempty"`
	Amount            int64              `json:"amount"`
	CashPortion       int64              `json:"cash_portion"`
	CreditPortion     int64              `json:"credit_portion"`
	Replayed          bool               `json:"replayed"`
}

// DebitWallet debits a cash account. When the cash balance cannot cover the
// amount, the shortfall draws on the holder's revolving credit line; the cash
// debit and the credit draw land in one atomic unit. Fails when cash plus
// available credit is insufficient.
func (s *LedgerService) DebitWallet(ctx context.Context, req DebitWalletRequest) (*DebitWalletResult, error) {
	if req.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	key := req.IdempotencyKey
	if key == "" {
		if req.SourceID == "" {
			return nil, ledger.ErrIdempotencyKeyRequired
		}
		key = ledger.DeriveIdempotencyKey(req.SourceType, req.SourceID)
	}
	creditKey := key + ":credit"

	var result *DebitWalletResult
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			cash, err := repos.AccountRepo().FindByID(ctx, req.TenantID, req.AccountID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.ErrAccountNotFound
				}
				return err
			}
			if cash.Kind != ledger.AccountKindCash {
				return shared.NewDomainError("INVALID_ACCOUNT_KIND", "Wallet debits require a cash account")
			}

			credit, err := repos.AccountRepo().FindByHolderAndKind(ctx, req.TenantID, cash.HolderID, ledger.AccountKindCredit)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}

			// Replay check up front: a prior run may have split the amount
			// differently than this run would.
			prior, err := findDebitReplay(ctx, repos, cash, credit, key, creditKey)
			if err != nil {
				return err
			}
			if prior != nil {
				if prior.CashPortion+prior.CreditPortion != req.Amount {
					return ledger.ErrIdempotencyConflict
				}
				result = prior
				return nil
			}

			available := cash.Balance
			if credit != nil {
				available += credit.AvailableCredit()
			}
			if req.Amount > available {
				return ledger.ErrInsufficientFunds
			}

			cashPortion := req.Amount
			if cashPortion > cash.Balance {
				cashPortion = cash.Balance
			}
			creditPortion := req.Amount - cashPortion

			result = &DebitWalletResult{
				Amount:        req.Amount,
				CashPortion:   cashPortion,
				CreditPortion: creditPortion,
			}

			if cashPortion > 0 {
				txn, err := ledger.NewTransaction(req.TenantID, cash.ID, ledger.TransactionKindDebit, -cashPortion, req.SourceType, req.SourceID)
				if err != nil {
					return err
				}
				txn.WithIdempotencyKey(key)
				recorded, _, err := appendEntry(ctx, repos, cash, txn)
				if err != nil {
					return err
				}
				if err := repos.AccountRepo().SaveWithLock(ctx, cash); err != nil {
					return err
				}
				result.CashTransaction = newTransactionResult(recorded, false)
			}
			if creditPortion > 0 {
				txn, err := ledger.NewTransaction(req.TenantID, credit.ID, ledger.TransactionKindCredit, creditPortion, req.SourceType, req.SourceID)
				if err != nil {
					return err
				}
				txn.WithIdempotencyKey(creditKey)
				recorded, _, err := appendEntry(ctx, repos, credit, txn)
				if err != nil {
					return err
				}
				if err := repos.AccountRepo().SaveWithLock(ctx, credit); err != nil {
					return err
				}
				result.CreditTransaction = newTransactionResult(recorded, false)
			}

			if err := stageEvents(ctx, repos, cash); err != nil {
				return err
			}
			if credit != nil {
				if err := stageEvents(ctx, repos, credit); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("wallet debited",
		zap.String("account_id", req.AccountID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("cash_portion", result.CashPortion),
		zap.Int64("credit_portion", result.CreditPortion),
		zap.Bool("replayed", result.Replayed))
	return result, nil
}

// findDebitReplay reconstructs a prior wallet debit from its recorded entries.
// Returns nil when no prior run with these keys exists.
func findDebitReplay(
	ctx context.Context,
	repos TransactionalRepositories,
	cash, credit *ledger.Account,
	key, creditKey string,
) (*DebitWalletResult, error) {
	result := &DebitWalletResult{Replayed: true}
	found := false

	cashTxn, err := repos.TransactionRepo().FindByIdempotencyKey(ctx, cash.ID, key)
	if err == nil {
		result.CashTransaction = newTransactionResult(cashTxn, true)
		result.CashPortion = -cashTxn.Amount
		found = true
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if credit != nil {
		creditTxn, err := repos.TransactionRepo().FindByIdempotencyKey(ctx, credit.ID, creditKey)
		if err == nil {
			result.CreditTransaction = newTransactionResult(creditTxn, true)
			result.CreditPortion = creditTxn.Amount
			found = true
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	if !found {
		return nil, nil
	}
	result.Amount = result.CashPortion + result.CreditPortion
	return result, nil
}

// CreditWalletRequest represents a request to credit a cash wallet, e.g. a
// commission settlement
type CreditWalletRequest struct {
	TenantID       uuid.UUID
	AccountID      uuid.UUID
	Amount         int64
	SourceType     ledger.SourceType
	SourceID       string
	Reason         string
	IdempotencyKey string
}

// CreditWallet credits a cash account.
func (s *LedgerService) CreditWallet(ctx context.Context, req CreditWalletRequest) (*TransactionResult, error) {
	if req.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	key := req.IdempotencyKey
	if key == "" {
		if req.SourceID == "" {
			return nil, ledger.ErrIdempotencyKeyRequired
		}
		key = ledger.DeriveIdempotencyKey(req.SourceType, req.SourceID)
	}

	var result *TransactionResult
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			account, err := repos.AccountRepo().FindByID(ctx, req.TenantID, req.AccountID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.ErrAccountNotFound
				}
				return err
			}
			if account.Kind != ledger.AccountKindCash {
				return shared.NewDomainError("INVALID_ACCOUNT_KIND", "Wallet credits require a cash account")
			}

			txn, err := ledger.NewTransaction(req.TenantID, account.ID, ledger.TransactionKindCredit, req.Amount, req.SourceType, req.SourceID)
			if err != nil {
				return err
			}
			txn.WithIdempotencyKey(key).WithReason(req.Reason)

			recorded, replayed, err := appendEntry(ctx, repos, account, txn)
			if err != nil {
				return err
			}
			if !replayed {
				if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
					return err
				}
				if err := stageEvents(ctx, repos, account); err != nil {
					return err
				}
			}
			result = newTransactionResult(recorded, replayed)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("wallet credited",
		zap.String("account_id", req.AccountID.String()),
		zap.Int64("amount", req.Amount),
		zap.Bool("replayed", result.Replayed))
	return result, nil
}

// RepayCreditRequest represents a repayment against a revolving credit line
type RepayCreditRequest struct {
	TenantID       uuid.UUID
	AccountID      uuid.UUID // the CREDIT account
	Amount         int64
	SourceID       string
	IdempotencyKey string
}

// RepayCredit reduces the used portion of a credit line. Overpaying past zero
// is rejected so the caller repays the exact remainder instead.
func (s *LedgerService) RepayCredit(ctx context.Context, req RepayCreditRequest) (*TransactionResult, error) {
	if req.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	key := req.IdempotencyKey
	if key == "" && req.SourceID != "" {
		key = ledger.DeriveIdempotencyKey(ledger.SourceTypeManual, req.SourceID)
	}

	var result *TransactionResult
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			account, err := repos.AccountRepo().FindByID(ctx, req.TenantID, req.AccountID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.ErrAccountNotFound
				}
				return err
			}
			if account.Kind != ledger.AccountKindCredit {
				return shared.NewDomainError("INVALID_ACCOUNT_KIND", "Repayments require a credit account")
			}

			txn, err := ledger.NewTransaction(req.TenantID, account.ID, ledger.TransactionKindRepayment, -req.Amount, ledger.SourceTypeManual, req.SourceID)
			if err != nil {
				return err
			}
			if key != "" {
				txn.WithIdempotencyKey(key)
			}

			recorded, replayed, err := appendEntry(ctx, repos, account, txn)
			if err != nil {
				return err
			}
			if !replayed {
				if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
					return err
				}
				if err := stageEvents(ctx, repos, account); err != nil {
					return err
				}
			}
			result = newTransactionResult(recorded, replayed)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit repaid",
		zap.String("account_id", req.AccountID.String()),
		zap.Int64("amount", req.Amount))
	return result, nil
}

// CancelRedemptionRequest represents a request to cancel a pending redemption
type CancelRedemptionRequest struct {
	TenantID     uuid.UUID
	RedemptionID uuid.UUID
	Reason       string
}

// CancelRedemption cancels a pending redemption and returns the spent points
// with a compensating entry. The original deduction stays in the log.
func (s *LedgerService) CancelRedemption(ctx context.Context, req CancelRedemptionRequest) (*ledger.Redemption, error) {
	var result *ledger.Redemption
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			redemption, err := repos.RedemptionRepo().FindByID(ctx, req.TenantID, req.RedemptionID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.ErrRedemptionNotFound
				}
				return err
			}

			if err := redemption.Cancel(req.Reason); err != nil {
				return err
			}

			account, err := repos.AccountRepo().FindByHolderAndKind(ctx, req.TenantID, redemption.HolderID, ledger.AccountKindPoints)
			if err != nil {
				return err
			}

			txn, err := ledger.NewTransaction(req.TenantID, account.ID, ledger.TransactionKindEarn, redemption.PointsSpent,
				ledger.SourceTypeRedemptionCancel, redemption.ID.String())
			if err != nil {
				return err
			}
			txn.WithDerivedIdempotencyKey().WithReason(req.Reason)

			if _, _, err := appendEntry(ctx, repos, account, txn); err != nil {
				return err
			}
			if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
				return err
			}
			if err := repos.RedemptionRepo().SaveWithLock(ctx, redemption); err != nil {
				return err
			}

			result = redemption
			return stageEvents(ctx, repos, account, redemption)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("redemption cancelled",
		zap.String("redemption_id", req.RedemptionID.String()),
		zap.Int64("points_returned", result.PointsSpent))
	return result, nil
}

// CompleteRedemption marks a pending redemption as fulfilled once the booking
// subsystem confirms the discount was applied.
func (s *LedgerService) CompleteRedemption(ctx context.Context, tenantID, redemptionID uuid.UUID) (*ledger.Redemption, error) {
	var result *ledger.Redemption
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			redemption, err := repos.RedemptionRepo().FindByID(ctx, tenantID, redemptionID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.ErrRedemptionNotFound
				}
				return err
			}
			if err := redemption.Complete(); err != nil {
				return err
			}
			if err := repos.RedemptionRepo().SaveWithLock(ctx, redemption); err != nil {
				return err
			}
			result = redemption
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// OpenAccountsRequest provisions the ledger accounts for a holder
type OpenAccountsRequest struct {
	TenantID    uuid.UUID
	HolderID    uuid.UUID
	CreditLimit int64 // zero means no credit line
}

// OpenAccounts creates the cash and points accounts for a holder, plus a
// credit account when a limit is given. Existing accounts are left untouched.
func (s *LedgerService) OpenAccounts(ctx context.Context, req OpenAccountsRequest) ([]*ledger.Account, error) {
	var opened []*ledger.Account
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		kinds := []ledger.AccountKind{ledger.AccountKindCash, ledger.AccountKindPoints}
		if req.CreditLimit > 0 {
			kinds = append(kinds, ledger.AccountKindCredit)
		}
		for _, kind := range kinds {
			existing, err := repos.AccountRepo().FindByHolderAndKind(ctx, req.TenantID, req.HolderID, kind)
			if err == nil {
				opened = append(opened, existing)
				continue
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}

			var account *ledger.Account
			if kind == ledger.AccountKindCredit {
				account, err = ledger.NewCreditAccount(req.TenantID, req.HolderID, req.CreditLimit)
			} else {
				account, err = ledger.NewAccount(req.TenantID, req.HolderID, kind)
			}
			if err != nil {
				return err
			}
			if err := repos.AccountRepo().Save(ctx, account); err != nil {
				return err
			}
			opened = append(opened, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("accounts provisioned",
		zap.String("holder_id", req.HolderID.String()),
		zap.Int("count", len(opened)))
	return opened, nil
}

// SetCreditLimit changes the limit of a credit account.
func (s *LedgerService) SetCreditLimit(ctx context.Context, tenantID, accountID uuid.UUID, limit int64) (*ledger.Account, error) {
	var result *ledger.Account
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			account, err := repos.AccountRepo().FindByID(ctx, tenantID, accountID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ledger.ErrAccountNotFound
				}
				return err
			}
			if err := account.SetCreditLimit(limit); err != nil {
				return err
			}
			if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
				return err
			}
			result = account
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetBalance returns the holder's derived balances across all account kinds.
// A missing account reads as zero.
func (s *LedgerService) GetBalance(ctx context.Context, tenantID, holderID uuid.UUID) (*BalanceSummary, error) {
	summary := &BalanceSummary{HolderID: holderID}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts, err := repos.AccountRepo().FindByHolder(ctx, tenantID, holderID)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			switch account.Kind {
			case ledger.AccountKindCash:
				summary.Cash = account.Balance
			case ledger.AccountKindCredit:
				summary.CreditUsed = account.Balance
				summary.CreditLimit = account.CreditLimit
				summary.CreditAvailable = account.AvailableCredit()
			case ledger.AccountKindPoints:
				summary.Points = account.Balance
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// GetAccount returns one account with its derived balance.
func (s *LedgerService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*ledger.Account, error) {
	var result *ledger.Account
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.AccountRepo().FindByID(ctx, tenantID, accountID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrAccountNotFound
			}
			return err
		}
		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListTransactions pages through an account's ledger entries.
func (s *LedgerService) ListTransactions(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[*ledger.Transaction], error) {
	var result shared.Paginated[*ledger.Transaction]
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		page, err := repos.TransactionRepo().FindByAccount(ctx, tenantID, accountID, filter)
		if err != nil {
			return err
		}
		result = page
		return nil
	})
	return result, err
}

// GetRedemption returns a redemption by ID.
func (s *LedgerService) GetRedemption(ctx context.Context, tenantID, redemptionID uuid.UUID) (*ledger.Redemption, error) {
	var result *ledger.Redemption
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		redemption, err := repos.RedemptionRepo().FindByID(ctx, tenantID, redemptionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrRedemptionNotFound
			}
			return err
		}
		result = redemption
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
