package handler

import (
	"time"

	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// ExpiryHandler handles the points expiry sweep admin endpoint
type ExpiryHandler struct {
	BaseHandler
	expiryService *appledger.ExpiryService
}

// NewExpiryHandler creates a new ExpiryHandler
func NewExpiryHandler(expiryService *appledger.ExpiryService) *ExpiryHandler {
	return &ExpiryHandler{
		expiryService: expiryService,
	}
}

// SweepResponse represents the outcome of an expiry sweep
// @Description Summary of a points expiry sweep
type SweepResponse struct {
	ExpiredCount       int   `json:"expired_count" example:"12"`
	TotalExpiredPoints int64 `json:"total_expired_points" example:"5400"`
}

// Sweep godoc
// @ID           sweepExpiredPoints
// @Summary      Expire stale points for the tenant
// @Description  Run the points expiry sweep for the tenant now. Each account is debited by its expirable amount with a per-period idempotency key, so re-running a sweep for the same period never expires twice.
// @Tags         expiry
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        as_of query string false "Reference time (RFC 3339), defaults to now"
// @Success      200 {object} APIResponse[SweepResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/expiry/sweep [post]
func (h *ExpiryHandler) Sweep(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid as_of timestamp, expected RFC 3339")
			return
		}
		asOf = parsed
	}

	result, err := h.expiryService.SweepExpired(c.Request.Context(), tenantID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SweepResponse{
		ExpiredCount:       result.ExpiredCount,
		TotalExpiredPoints: result.TotalExpiredPoints,
	})
}
