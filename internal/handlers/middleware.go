package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"draw-service/internal/models"
	"draw-service/pkg/common"
)

// Identity headers are set by the upstream auth gateway.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"

	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(HeaderUserID); id != "" {
			c.Set(ctxUserID, id)
			c.Set(ctxUserRole, c.GetHeader(HeaderUserRole))
		}
		c.Next()
	}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("Missing user identity", nil, http.StatusUnauthorized))
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("Missing user identity", nil, http.StatusUnauthorized))
			return
		}
		if c.GetString(ctxUserRole) != string(models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("Admin access required", nil, http.StatusForbidden))
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
