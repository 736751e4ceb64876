package handlers

import (
	"github.com/gin-gonic/gin"

	"draw-service/internal/models"
	"draw-service/internal/services"
)

type ForceCompleteRequest struct {
	PayDirect bool `json:"pay_direct"`
}

type ManualWinnersRequest struct {
	Winners []services.ManualPick `json:"winners" binding:"required"`
}

type AutoClosingRequest struct {
	Enabled bool `json:"enabled"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type AdjustRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

type StatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required"`
}

func (h *Handler) CreateDraw(c *gin.Context) {
	var req services.CreateDrawDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draw, err := h.Draws.CreateDraw(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, draw, "Draw created")
}

func (h *Handler) PauseDraw(c *gin.Context) {
	if err := h.Draws.PauseDraw(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c, nil, "Draw paused")
}

func (h *Handler) ResumeDraw(c *gin.Context) {
	if err := h.Draws.ResumeDraw(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c, nil, "Draw resumed")
}

func (h *Handler) SelectWinners(c *gin.Context) {
	winners, err := h.Draws.SelectWinners(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, winners, "Winners selected")
}

func (h *Handler) ForceComplete(c *gin.Context) {
	var req ForceCompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	winners, err := h.Draws.ForceComplete(c.Request.Context(), c.Param("id"), userID(c), req.PayDirect)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, winners, "Draw completed")
}

func (h *Handler) SaveManualWinners(c *gin.Context) {
	var req ManualWinnersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	winners, err := h.Draws.SaveManualWinners(c.Request.Context(), c.Param("id"), userID(c), req.Winners)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, winners, "Winners saved")
}

func (h *Handler) SetAutoClosing(c *gin.Context) {
	var req AutoClosingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Draws.SetAutoClosing(c.Request.Context(), c.Param("id"), req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"enabled": req.Enabled}, "Auto closing updated")
}

func (h *Handler) DeleteDraw(c *gin.Context) {
	refunded, err := h.Draws.DeleteDraw(c.Request.Context(), c.Param("id"), c.Query("force") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"refunded_entries": refunded}, "Draw deleted")
}

func (h *Handler) PendingClaims(c *gin.Context) {
	result, err := h.Claims.PendingClaims(c.Request.Context(), models.TransactionType(c.Query("type")), queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, result)
}

func (h *Handler) ApproveClaim(c *gin.Context) {
	id, err := pathInt64(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}
	trx, err := h.Claims.ApproveClaim(c.Request.Context(), id, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, trx, "Claim approved")
}

func (h *Handler) RejectClaim(c *gin.Context) {
	id, err := pathInt64(c, "id")
	if err != nil {
		badRequest(c, err)
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trx, err := h.Claims.RejectClaim(c.Request.Context(), id, userID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, trx, "Claim rejected")
}

func (h *Handler) AdjustBalance(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trx, err := h.Ledger.ManualAdjust(c.Request.Context(), c.Param("id"), req.Amount, userID(c), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, trx, "Balance adjusted")
}

func (h *Handler) SetUserStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Users.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"status": req.Status}, "User status updated")
}

func (h *Handler) UpsertTask(c *gin.Context) {
	var req services.TaskDefinitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.ID = c.Param("taskId")
	task, err := h.Tasks.UpsertTask(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, task, "Task saved")
}

func (h *Handler) AuditLedger(c *gin.Context) {
	mismatches, err := h.Ledger.Audit(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"mismatches": mismatches, "consistent": len(mismatches) == 0}, "Ledger audited")
}
