package handler

import (
	"strconv"

	appledger "github.com/voyago/backend/internal/application/ledger"
	"github.com/voyago/backend/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MilestoneHandler handles milestone and activity API endpoints
type MilestoneHandler struct {
	BaseHandler
	milestoneService *appledger.MilestoneService
}

// NewMilestoneHandler creates a new MilestoneHandler
func NewMilestoneHandler(milestoneService *appledger.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{
		milestoneService: milestoneService,
	}
}

// RecordActivityRequest represents a reported holder activity
// @Description Request body for reporting a holder activity that may trigger a milestone
type RecordActivityRequest struct {
	HolderID  string `json:"holder_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440002"`
	EventType string `json:"event_type" binding:"required,oneof=trip.completed referral.converted savings.goal.reached" example:"trip.completed"`
	// Count overrides the derived activity counter, for producers that track
	// their own progress (for example a savings goal)
	Count int64 `json:"count" binding:"min=0" example:"0"`
}

// MilestoneResponse represents a milestone in API responses
// @Description Milestone response
type MilestoneResponse struct {
	ID                  string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	HolderID            string  `json:"holder_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	RuleID              string  `json:"rule_id" example:"trips-10"`
	RewardPoints        int64   `json:"reward_points" example:"1000"`
	Status              string  `json:"status" example:"PAID"`
	RewardTransactionID *string `json:"reward_transaction_id,omitempty"`
	PayoutAttempts      int     `json:"payout_attempts" example:"1"`
	AchievedAt          string  `json:"achieved_at" example:"2026-08-29T10:00:00Z"`
	PaidAt              string  `json:"paid_at,omitempty"`
}

// PayoutPendingResponse represents the outcome of a payout retry pass
// @Description Summary of a milestone payout retry pass
type PayoutPendingResponse struct {
	Paid      int `json:"paid" example:"3"`
	Failed    int `json:"failed" example:"0"`
	Escalated int `json:"escalated" example:"1"`
}

func toMilestoneResponse(m *ledger.Milestone) MilestoneResponse {
	resp := MilestoneResponse{
		ID:             m.ID.String(),
		HolderID:       m.HolderID.String(),
		RuleID:         m.RuleID,
		RewardPoints:   m.RewardPoints,
		Status:         string(m.Status),
		PayoutAttempts: m.PayoutAttempts,
		AchievedAt:     m.AchievedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if m.RewardTransactionID != nil {
		id := m.RewardTransactionID.String()
		resp.RewardTransactionID = &id
	}
	if m.PaidAt != nil {
		resp.PaidAt = m.PaidAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// RecordActivity godoc
// @ID           recordActivity
// @Summary      Report a holder activity
// @Description  Evaluate the holder's activity against the configured milestone rules. A newly crossed threshold is recorded durably and then paid; re-reporting the same activity never pays twice.
// @Tags         milestones
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body RecordActivityRequest true "Activity report"
// @Success      200 {object} APIResponse[MilestoneResponse]
// @Success      204 "No milestone crossed"
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/activity [post]
func (h *MilestoneHandler) RecordActivity(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	holderID, err := uuid.Parse(req.HolderID)
	if err != nil {
		h.BadRequest(c, "Invalid holder ID format")
		return
	}

	milestone, err := h.milestoneService.Evaluate(c.Request.Context(), appledger.EvaluateRequest{
		TenantID:  tenantID,
		HolderID:  holderID,
		EventType: req.EventType,
		Count:     req.Count,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if milestone == nil {
		h.NoContent(c)
		return
	}

	h.Success(c, toMilestoneResponse(milestone))
}

// ListMilestones godoc
// @ID           listMilestones
// @Summary      List a holder's milestones
// @Description  Get every recorded milestone for a holder, achieved and paid alike
// @Tags         milestones
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Holder ID" format(uuid)
// @Success      200 {object} APIResponse[[]MilestoneResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/holders/{id}/milestones [get]
func (h *MilestoneHandler) ListMilestones(c *gin.Context) {
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

	milestones, err := h.milestoneService.GetMilestones(c.Request.Context(), tenantID, holderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]MilestoneResponse, len(milestones))
	for i, m := range milestones {
		responses[i] = toMilestoneResponse(m)
	}
	h.Success(c, responses)
}

// PayoutPending godoc
// @ID           payoutPendingMilestones
// @Summary      Retry payout for unpaid milestones
// @Description  Run a payout pass over detected-but-unpaid milestones for the tenant. Milestones past the attempt budget are reported for manual review instead of being retried.
// @Tags         milestones
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        limit query int false "Maximum milestones to process" default(100)
// @Success      200 {object} APIResponse[PayoutPendingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ledger/milestones/payout [post]
func (h *MilestoneHandler) PayoutPending(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	result, err := h.milestoneService.PayoutPending(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, PayoutPendingResponse{
		Paid:      result.Paid,
		Failed:    result.Failed,
		Escalated: result.Escalated,
	})
}
