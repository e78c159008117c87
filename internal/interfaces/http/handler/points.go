package handler

import (
	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PointsHandler handles loyalty points API endpoints
type PointsHandler struct {
	BaseHandler
	ledgerService *appledger.LedgerService
}

// NewPointsHandler creates a new PointsHandler
func NewPointsHandler(ledgerService *appledger.LedgerService) *PointsHandler {
	return &PointsHandler{
		ledgerService: ledgerService,
	}
}

// EarnPointsRequest represents a request to award points
// @Description Request body for awarding loyalty points
type EarnPointsRequest struct {
	Points     int64  `json:"points" binding:"required,gt=0" example:"150"`
	SourceType string `json:"source_type" binding:"required,oneof=booking trip_payment referral milestone manual" example:"trip_payment"`
	SourceID   string `json:"source_id" binding:"max=100" example:"trip-8812"`
	Reason     string `json:"reason" binding:"max=500" example:"Completed trip to Lisbon"`
	Metadata   string `json:"metadata" binding:"max=2000"`
}

// RedeemPointsRequest represents a request to redeem points against a booking
// @Description Request body for redeeming points for a booking discount
type RedeemPointsRequest struct {
	Points    int64  `json:"points" binding:"required,gt=0" example:"500"`
	BookingID string `json:"booking_id" binding:"required,max=100" example:"bkg-2041"`
}

// CancelRedemptionRequest represents a request to cancel a pending redemption
// @Description Request body for cancelling a redemption
type CancelRedemptionRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500" example:"Booking was cancelled"`
}

// RedemptionResponse represents a redemption in API responses
// @Description Redemption response
type RedemptionResponse struct {
	ID             string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	HolderID       string `json:"holder_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	BookingID      string `json:"booking_id" example:"bkg-2041"`
	PointsSpent    int64  `json:"points_spent" example:"500"`
	DiscountAmount int64  `json:"discount_amount" example:"5000"`
	Status         string `json:"status" example:"PENDING"`
	CancelReason   string `json:"cancel_reason,omitempty"`
	CompletedAt    string `json:"completed_at,omitempty"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
}

// RedeemPointsResponse represents the outcome of a points redemption
// @Description Points redemption response carrying the redemption and its ledger entry
type RedeemPointsResponse struct {
	Redemption     RedemptionResponse         `json:"redemption"`
	Transaction    *TransactionResultResponse `json:"transaction,omitempty"`
	DiscountAmount int64                      `json:"discount_amount" example:"5000"`
}

func toRedemptionResponse(r *ledger.Redemption) RedemptionResponse {
	resp := RedemptionResponse{
		ID:             r.ID.String(),
		HolderID:       r.HolderID.String(),
		BookingID:      r.BookingID,
		PointsSpent:    r.PointsSpent,
		DiscountAmount: r.DiscountAmount,
		Status:         string(r.Status),
		CancelReason:   r.CancelReason,
	}
	if r.CompletedAt != nil {
		resp.CompletedAt = r.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if r.CancelledAt != nil {
		resp.CancelledAt = r.CancelledAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// Earn godoc
// @ID           earnPoints
// @Summary      Award points to a holder
// @Description  Credit loyalty points to a holder's points account. Earning is always idempotent: a key is taken from the header or derived from the source reference.
// @Tags         points
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        X-Idempotency-Key header string false "Idempotency key (derived from source when absent)"
// @Param        id path string true "Holder ID" format(uuid)
// @Param        request body EarnPointsRequest true "Earn request"
// @Success      200 {object} APIResponse[TransactionResultResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/holders/{id}/points/earn [post]
func (h *PointsHandler) Earn(c *gin.Context) {
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

	var req EarnPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.EarnPoints(c.Request.Context(), appledger.EarnPointsRequest{
		TenantID:       tenantID,
		HolderID:       holderID,
		Points:         req.Points,
		SourceType:     ledger.SourceType(req.SourceType),
		SourceID:       req.SourceID,
		Reason:         req.Reason,
		Metadata:       req.Metadata,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTransactionResultResponse(result))
}

// Redeem godoc
// @ID           redeemPoints
// @Summary      Redeem points for a booking discount
// @Description  Deduct points and open a pending redemption worth the configured discount value. The deduction and the redemption are one atomic unit; one booking can carry at most one redemption.
// @Tags         points
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        X-Idempotency-Key header string false "Idempotency key (derived from the booking when absent)"
// @Param        id path string true "Holder ID" format(uuid)
// @Param        request body RedeemPointsRequest true "Redeem request"
// @Success      201 {object} APIResponse[RedeemPointsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/holders/{id}/points/redeem [post]
func (h *PointsHandler) Redeem(c *gin.Context) {
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

	var req RedeemPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.RedeemPoints(c.Request.Context(), appledger.RedeemPointsRequest{
		TenantID:       tenantID,
		HolderID:       holderID,
		Points:         req.Points,
		BookingID:      req.BookingID,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, RedeemPointsResponse{
		Redemption:     toRedemptionResponse(result.Redemption),
		Transaction:    toTransactionResultResponse(result.Transaction),
		DiscountAmount: result.DiscountAmount,
	})
}

// GetRedemption godoc
// @ID           getRedemption
// @Summary      Get a redemption
// @Description  Retrieve a single redemption by its ID
// @Tags         points
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Redemption ID" format(uuid)
// @Success      200 {object} APIResponse[RedemptionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/redemptions/{id} [get]
func (h *PointsHandler) GetRedemption(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	redemptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid redemption ID format")
		return
	}

	redemption, err := h.ledgerService.GetRedemption(c.Request.Context(), tenantID, redemptionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRedemptionResponse(redemption))
}

// Cancel godoc
// @ID           cancelRedemption
// @Summary      Cancel a pending redemption
// @Description  Cancel a pending redemption and return the spent points with a compensating entry. The original deduction stays in the log. Completed or already cancelled redemptions are rejected.
// @Tags         points
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Redemption ID" format(uuid)
// @Param        request body CancelRedemptionRequest true "Cancellation request"
// @Success      200 {object} APIResponse[RedemptionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/redemptions/{id}/cancel [post]
func (h *PointsHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	redemptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid redemption ID format")
		return
	}

	var req CancelRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	redemption, err := h.ledgerService.CancelRedemption(c.Request.Context(), appledger.CancelRedemptionRequest{
		TenantID:     tenantID,
		RedemptionID: redemptionID,
		Reason:       req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRedemptionResponse(redemption))
}

// Complete godoc
// @ID           completeRedemption
// @Summary      Complete a pending redemption
// @Description  Mark a pending redemption as consumed by its booking. Terminal redemptions are rejected.
// @Tags         points
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Redemption ID" format(uuid)
// @Success      200 {object} APIResponse[RedemptionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/redemptions/{id}/complete [post]
func (h *PointsHandler) Complete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	redemptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid redemption ID format")
		return
	}

	redemption, err := h.ledgerService.CompleteRedemption(c.Request.Context(), tenantID, redemptionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRedemptionResponse(redemption))
}
