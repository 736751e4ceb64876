package handlers

import (
	"github.com/gin-gonic/gin"

	"draw-service/internal/services"
)

type PrizeClaimRequest struct {
	TicketID string `json:"ticket_id" binding:"required"`
}

type TaskRewardRequest struct {
	Date string `json:"date"`
}

func (h *Handler) SubmitPrizeClaim(c *gin.Context) {
	var req PrizeClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trx, err := h.Claims.SubmitPrizeClaim(c.Request.Context(), userID(c), c.Param("id"), req.TicketID)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, trx, "Prize claim submitted")
}

func (h *Handler) SubmitTaskReward(c *gin.Context) {
	var req TaskRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Date == "" {
		req.Date = services.Today()
	}
	trx, err := h.Claims.SubmitTaskReward(c.Request.Context(), userID(c), req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, trx, "Task reward claim submitted")
}

func (h *Handler) SubmitDeposit(c *gin.Context) {
	var req services.DepositDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c)
	trx, err := h.Claims.SubmitDeposit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, trx, "Deposit submitted")
}

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	var req services.WithdrawalDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c)
	trx, err := h.Claims.RequestWithdrawal(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, trx, "Withdrawal requested")
}
