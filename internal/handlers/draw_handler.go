package handlers

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) ActiveDraw(c *gin.Context) {
	draw, err := h.Draws.GetActiveDraw(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, draw, "Active draw fetched")
}

func (h *Handler) PreviousDraws(c *gin.Context) {
	draws, err := h.Draws.PreviousDraws(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, draws, "Previous draws fetched")
}

func (h *Handler) GetDraw(c *gin.Context) {
	draw, err := h.Draws.GetDraw(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, draw, "Draw fetched")
}

func (h *Handler) PurchaseEntry(c *gin.Context) {
	result, err := h.Entries.PurchaseEntry(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, result, "Entry purchased")
}
