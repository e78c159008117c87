package handler

import (
	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BalanceHandler handles the balance summary read path
type BalanceHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
	cache         appledger.BalanceCache // optional
	logger        *zap.Logger
}

// NewBalanceHandler creates a new BalanceHandler. The cache may be nil, in
// which case every read goes to the ledger.
func NewBalanceHandler(ledgerService *appledger.LedgerService, cache appledger.BalanceCache, logger *zap.Logger) *BalanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceHandler{
		ledgerService: ledgerService,
		cache:         cache,
		logger:        logger,
	}
}

// BalanceSummaryResponse represents a holder's balance summary
// @Description Balance summary across the holder's cash, credit and points accounts
type BalanceSummaryResponse struct {
	HolderID        string `json:"holder_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	Cash            int64  `json:"cash" example:"125000"`
	CreditUsed      int64  `json:"credit_used" example:"40000"`
	CreditLimit     int64  `json:"credit_limit" example:"100000"`
	CreditAvailable int64  `json:"credit_available" example:"60000"`
	Points          int64  `json:"points" example:"3200"`
}

func toBalanceSummaryResponse(s *appledger.BalanceSummary) BalanceSummaryResponse {
	return BalanceSummaryResponse{
		HolderID:        s.HolderID.String(),
		Cash:            s.Cash,
		CreditUsed:      s.CreditUsed,
		CreditLimit:     s.CreditLimit,
		CreditAvailable: s.CreditAvailable,
		Points:          s.Points,
	}
}

// GetBalance godoc
// @ID           getBalanceSummary
// @Summary      Get a holder's balance summary
// @Description  Return the holder's cash balance, credit usage and points in one view. Served from cache when possible; cached values age out within seconds of a write.
// @Tags         balance
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Holder ID" format(uuid)
// @Success      200 {object} APIResponse[BalanceSummaryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/holders/{id}/balance [get]
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	holderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid holder ID format")
		return
	}

	ctx := c.Request.Context()

	if h.cache != nil {
		cached, err := h.cache.Get(ctx, tenantID, holderID)
		if err != nil {
			h.logger.Warn("Balance cache read failed",
				zap.String("holder_id", holderID.String()),
				zap.Error(err),
			)
		}
		if cached != nil {
			h.Success(c, toBalanceSummaryResponse(cached))
			return
		}
	}

	summary, err := h.ledgerService.GetBalance(ctx, tenantID, holderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, tenantID, holderID, summary, 0); err != nil {
			h.logger.Warn("Balance cache write failed",
				zap.String("holder_id", holderID.String()),
				zap.Error(err),
			)
		}
	}

	h.Success(c, toBalanceSummaryResponse(summary))
}
