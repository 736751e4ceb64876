package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"draw-service/internal/services"
)

type Handler struct {
	Users   *services.UserService
	Ledger  *services.LedgerService
	Entries *services.EntryService
	Draws   *services.DrawService
	Claims  *services.ClaimService
	Tasks   *services.TaskService
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func pathInt64(c *gin.Context, key string) (int64, error) {
	return strconv.ParseInt(c.Param(key), 10, 64)
}
