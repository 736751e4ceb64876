package handlers

import (
	"github.com/gin-gonic/gin"

	"draw-service/internal/services"
)

type RegisterRequest struct {
	DisplayName  string `json:"display_name" binding:"required"`
	ReferralCode string `json:"referral_code"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.Users.RegisterUser(c.Request.Context(), services.RegisterUserDTO{
		ID:           userID(c),
		DisplayName:  req.DisplayName,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, user, "User registered")
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.Users.GetUser(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, user, "User fetched")
}

func (h *Handler) MyTransactions(c *gin.Context) {
	result, err := h.Ledger.Transactions(c.Request.Context(), userID(c), queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, result)
}

func (h *Handler) MyEntries(c *gin.Context) {
	entries, err := h.Entries.UserEntries(c.Request.Context(), userID(c), c.Query("draw_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, entries, "Entries fetched")
}
