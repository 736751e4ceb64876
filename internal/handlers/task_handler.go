package handlers

import (
	"github.com/gin-gonic/gin"

	"draw-service/internal/services"
)

func dateParam(c *gin.Context) string {
	if d := c.Query("date"); d != "" {
		return d
	}
	return services.Today()
}

func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.Tasks.ListTasks(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, tasks, "Tasks fetched")
}

func (h *Handler) TaskProgress(c *gin.Context) {
	progress, err := h.Tasks.Progress(c.Request.Context(), userID(c), dateParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, progress, "Progress fetched")
}

func (h *Handler) CompleteTask(c *gin.Context) {
	progress, err := h.Tasks.CompleteTask(c.Request.Context(), userID(c), dateParam(c), c.Param("taskId"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, progress, "Task completed")
}
