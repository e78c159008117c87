package handler

import (
	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/voyago/backend/internal/domain/shared"
	"github.com/voyago/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles ledger account API endpoints
type AccountHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(ledgerService *appledger.LedgerService) *AccountHandler {
	return &AccountHandler{
		ledgerService: ledgerService,
	}
}

// OpenAccountsRequest represents a request to provision ledger accounts
// @Description Request body for opening a holder's ledger accounts
type OpenAccountsRequest struct {
	HolderID    string `json:"holder_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440002"`
	CreditLimit int64  `json:"credit_limit" binding:"min=0" example:"500000"`
}

// SetCreditLimitRequest represents a request to change a credit limit
// @Description Request body for setting an account's credit limit
type SetCreditLimitRequest struct {
	CreditLimit int64 `json:"credit_limit" binding:"min=0" example:"750000"`
}

// AccountResponse represents a ledger account in API responses
// @Description Ledger account response
type AccountResponse struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TenantID    string `json:"tenant_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	HolderID    string `json:"holder_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	Kind        string `json:"kind" example:"CASH"`
	Balance     int64  `json:"balance" example:"125000"`
	CreditLimit int64  `json:"credit_limit" example:"500000"`
	Version     int    `json:"version" example:"1"`
}

// TransactionResponse represents a ledger transaction in API responses
// @Description Ledger transaction response
type TransactionResponse struct {
	ID             string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	AccountID      string  `json:"account_id" example:"550e8400-e29b-41d4-a716-446655440003"`
	Kind           string  `json:"kind" example:"DEBIT"`
	Amount         int64   `json:"amount" example:"-4500"`
	BalanceAfter   int64   `json:"balance_after" example:"120500"`
	SourceType     string  `json:"source_type" example:"booking"`
	SourceID       string  `json:"source_id" example:"bkg-2041"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	RecordedAt     string  `json:"recorded_at" example:"2026-08-29T10:00:00Z"`
}

func toAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID.String(),
		TenantID:    a.TenantID.String(),
		HolderID:    a.HolderID.String(),
		Kind:        string(a.Kind),
		Balance:     a.Balance,
		CreditLimit: a.CreditLimit,
		Version:     a.Version,
	}
}

func toTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID.String(),
		AccountID:      t.AccountID.String(),
		Kind:           string(t.Kind),
		Amount:         t.Amount,
		BalanceAfter:   t.BalanceAfter,
		SourceType:     string(t.SourceType),
		SourceID:       t.SourceID,
		IdempotencyKey: t.IdempotencyKey,
		Reason:         t.Reason,
		RecordedAt:     t.RecordedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// OpenAccounts godoc
// @ID           openLedgerAccounts
// @Summary      Provision ledger accounts for a holder
// @Description  Create the cash and points accounts for a holder, plus a credit account when a limit is given. Existing accounts are returned untouched.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body OpenAccountsRequest true "Open accounts request"
// @Success      201 {object} APIResponse[[]AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/accounts [post]
func (h *AccountHandler) OpenAccounts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req OpenAccountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	holderID, err := uuid.Parse(req.HolderID)
	if err != nil {
		h.BadRequest(c, "Invalid holder ID format")
		return
	}

	accounts, err := h.ledgerService.OpenAccounts(c.Request.Context(), appledger.OpenAccountsRequest{
		TenantID:    tenantID,
		HolderID:    holderID,
		CreditLimit: req.CreditLimit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		responses[i] = toAccountResponse(a)
	}
	h.Created(c, responses)
}

// GetAccount godoc
// @ID           getLedgerAccount
// @Summary      Get a ledger account
// @Description  Retrieve a single ledger account by its ID
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
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

	account, err := h.ledgerService.GetAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountResponse(account))
}

// SetCreditLimit godoc
// @ID           setCreditLimit
// @Summary      Set a credit account's limit
// @Description  Change the limit of a holder's revolving credit line
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Credit account ID" format(uuid)
// @Param        request body SetCreditLimitRequest true "New credit limit"
// @Success      200 {object} APIResponse[AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/accounts/{id}/credit-limit [put]
func (h *AccountHandler) SetCreditLimit(c *gin.Context) {
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

	var req SetCreditLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	account, err := h.ledgerService.SetCreditLimit(c.Request.Context(), tenantID, accountID, req.CreditLimit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountResponse(account))
}

// ListTransactions godoc
// @ID           listLedgerTransactions
// @Summary      List an account's transactions
// @Description  Get a paginated list of ledger entries for one account, newest first
// @Tags         accounts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Account ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/accounts/{id}/transactions [get]
func (h *AccountHandler) ListTransactions(c *gin.Context) {
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

	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := shared.DefaultFilter()
	filter.Page = listReq.Page
	filter.PageSize = listReq.PageSize

	result, err := h.ledgerService.ListTransactions(c.Request.Context(), tenantID, accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]TransactionResponse, len(result.Items))
	for i, t := range result.Items {
		responses[i] = toTransactionResponse(t)
	}
	h.SuccessWithMeta(c, responses, result.Total, result.Page, result.PageSize)
}
