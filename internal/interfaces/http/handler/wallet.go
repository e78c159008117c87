package handler

import (
	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles cash and credit wallet API endpoints
type WalletHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(ledgerService *appledger.LedgerService) *WalletHandler {
	return &WalletHandler{
		ledgerService: ledgerService,
	}
}

// DebitWalletRequest represents a request to debit a cash account
// @Description Request body for debiting a wallet. Amounts are minor currency units.
type DebitWalletRequest struct {
	Amount     int64  `json:"amount" binding:"required,gt=0" example:"4500"`
	SourceType string `json:"source_type" binding:"required,oneof=booking trip_payment commission manual" example:"booking"`
	SourceID   string `json:"source_id" binding:"required,max=100" example:"bkg-2041"`
}

// CreditWalletRequest represents a request to credit a cash account
// @Description Request body for crediting a wallet. Amounts are minor currency units.
type CreditWalletRequest struct {
	Amount     int64  `json:"amount" binding:"required,gt=0" example:"10000"`
	SourceType string `json:"source_type" binding:"required,oneof=booking trip_payment commission referral manual" example:"commission"`
	SourceID   string `json:"source_id" binding:"max=100" example:"payout-77"`
	Reason     string `json:"reason" binding:"max=500" example:"Host payout for August"`
}

// RepayCreditRequest represents a request to repay drawn credit
// @Description Request body for repaying a credit line. Amounts are minor currency units.
type RepayCreditRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0" example:"25000"`
	SourceID string `json:"source_id" binding:"max=100" example:"repay-2026-08"`
}

// DebitWalletResponse represents the outcome of a wallet debit
// @Description Wallet debit response with the cash entry and the credit draw, if any
type DebitWalletResponse struct {
	CashTransaction   *TransactionResultResponse `json:"cash_transaction,omitempty"`
	CreditTransaction *TransactionResultResponse `json:"credit_transaction,omitempty"`
	Amount            int64                      `json:"amount" example:"4500"`
	CashPortion       int64                      `json:"cash_portion" example:"3000"`
	CreditPortion     int64                      `json:"credit_portion" example:"1500"`
	Replayed          bool                       `json:"replayed" example:"false"`
}

// TransactionResultResponse represents a recorded ledger entry
// @Description Recorded ledger entry
type TransactionResultResponse struct {
	TransactionID string `json:"transaction_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	AccountID     string `json:"account_id" example:"550e8400-e29b-41d4-a716-446655440003"`
	Kind          string `json:"kind" example:"DEBIT"`
	Amount        int64  `json:"amount" example:"-4500"`
	BalanceAfter  int64  `json:"balance_after" example:"120500"`
	Replayed      bool   `json:"replayed" example:"false"`
}

func toTransactionResultResponse(r *appledger.TransactionResult) *TransactionResultResponse {
	if r == nil {
		return nil
	}
	return &TransactionResultResponse{
		TransactionID: r.TransactionID.String(),
		AccountID:     r.AccountID.String(),
		Kind:          string(r.Kind),
		Amount:        r.Amount,
		BalanceAfter:  r.BalanceAfter,
		Replayed:      r.Replayed,
	}
}

// Debit godoc
// @ID           debitWallet
// @Summary      Debit a cash account
// @Description  Debit cash; when the balance cannot cover the amount the shortfall draws on the holder's credit line in the same atomic unit. Replaying the same idempotency key returns the original entry.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        X-Idempotency-Key header string false "Idempotency key (derived from source when absent)"
// @Param        id path string true "Cash account ID" format(uuid)
// @Param        request body DebitWalletRequest true "Debit request"
// @Success      200 {object} APIResponse[DebitWalletResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/accounts/{id}/debit [post]
func (h *WalletHandler) Debit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req DebitWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.DebitWallet(c.Request.Context(), appledger.DebitWalletRequest{
		TenantID:       tenantID,
		AccountID:      accountID,
		Amount:         req.Amount,
		SourceType:     ledger.SourceType(req.SourceType),
		SourceID:       req.SourceID,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, DebitWalletResponse{
		CashTransaction:   toTransactionResultResponse(result.CashTransaction),
		CreditTransaction: toTransactionResultResponse(result.CreditTransaction),
		Amount:            result.Amount,
		CashPortion:       result.CashPortion,
		CreditPortion:     result.CreditPortion,
		Replayed:          result.Replayed,
	})
}

// Credit godoc
// @ID           creditWallet
// @Summary      Credit a cash account
// @Description  Add funds to a holder's cash account
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        X-Idempotency-Key header string false "Idempotency key (derived from source when absent)"
// @Param        id path string true "Cash account ID" format(uuid)
// @Param        request body CreditWalletRequest true "Credit request"
// @Success      200 {object} APIResponse[TransactionResultResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/accounts/{id}/credit [post]
func (h *WalletHandler) Credit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req CreditWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.CreditWallet(c.Request.Context(), appledger.CreditWalletRequest{
		TenantID:       tenantID,
		AccountID:      accountID,
		Amount:         req.Amount,
		SourceType:     ledger.SourceType(req.SourceType),
		SourceID:       req.SourceID,
		Reason:         req.Reason,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTransactionResultResponse(result))
}

// Repay godoc
// @ID           repayCredit
// @Summary      Repay drawn credit
// @Description  Reduce the used portion of a credit line. Repaying more than the outstanding debt is rejected.
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        X-Idempotency-Key header string false "Idempotency key (derived from source when absent)"
// @Param        id path string true "Credit account ID" format(uuid)
// @Param        request body RepayCreditRequest true "Repayment request"
// @Success      200 {object} APIResponse[TransactionResultResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/accounts/{id}/repay [post]
func (h *WalletHandler) Repay(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req RepayCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.RepayCredit(c.Request.Context(), appledger.RepayCreditRequest{
		TenantID:       tenantID,
		AccountID:      accountID,
		Amount:         req.Amount,
		SourceID:       req.SourceID,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTransactionResultResponse(result))
}
