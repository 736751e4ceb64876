package handlers

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(Identity())

	// Ping endpoint
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome To Lucky Draw service",
		})
	})

	// Public draw routes
	r.GET("/draws/active", h.ActiveDraw)
	r.GET("/draws/previous", h.PreviousDraws)
	r.GET("/draws/:id", h.GetDraw)
	r.GET("/tasks", h.ListTasks)

	user := r.Group("", RequireUser())
	user.POST("/users", h.RegisterUser)
	user.GET("/me", h.Me)
	user.GET("/me/transactions", h.MyTransactions)
	user.GET("/me/entries", h.MyEntries)
	user.POST("/draws/:id/entries", h.PurchaseEntry)
	user.POST("/draws/:id/claims", h.SubmitPrizeClaim)
	user.GET("/tasks/progress", h.TaskProgress)
	user.POST("/tasks/:taskId/complete", h.CompleteTask)
	user.POST("/tasks/reward", h.SubmitTaskReward)
	user.POST("/deposits", h.SubmitDeposit)
	user.POST("/withdrawals", h.RequestWithdrawal)

	admin := r.Group("/admin", RequireAdmin())
	admin.POST("/draws", h.CreateDraw)
	admin.POST("/draws/:id/pause", h.PauseDraw)
	admin.POST("/draws/:id/resume", h.ResumeDraw)
	admin.POST("/draws/:id/select-winners", h.SelectWinners)
	admin.POST("/draws/:id/complete", h.ForceComplete)
	admin.POST("/draws/:id/manual-winners", h.SaveManualWinners)
	admin.POST("/draws/:id/auto-closing", h.SetAutoClosing)
	admin.DELETE("/draws/:id", h.DeleteDraw)
	admin.GET("/claims", h.PendingClaims)
	admin.POST("/claims/:id/approve", h.ApproveClaim)
	admin.POST("/claims/:id/reject", h.RejectClaim)
	admin.POST("/users/:id/adjust", h.AdjustBalance)
	admin.POST("/users/:id/status", h.SetUserStatus)
	admin.PUT("/tasks/:taskId", h.UpsertTask)
	admin.GET("/ledger/audit", h.AuditLedger)

	return r
}
