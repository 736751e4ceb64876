package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"draw-service/internal/logger"
	"draw-service/pkg/common"
	"draw-service/pkg/errorx"
)

// respondError writes err in the common error envelope. Errors outside the
// taxonomy are logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var typed *errorx.Error
	if !errors.As(err, &typed) {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		resp := common.NewErrorResponse(errorx.Internal.Message(), nil, http.StatusInternalServerError)
		resp.Code = errorx.Internal.String()
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	status := typed.Kind.HTTPStatus()
	var detail interface{}
	if typed.Detail != "" {
		detail = gin.H{"detail": typed.Detail}
	}
	resp := common.NewErrorResponse(typed.Message, detail, status)
	resp.Code = typed.Kind.String()
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	resp := common.NewErrorResponse(errorx.ValidationError.Message(), gin.H{"detail": err.Error()}, http.StatusBadRequest)
	resp.Code = errorx.ValidationError.String()
	c.JSON(http.StatusBadRequest, resp)
}

func ok(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, common.NewSuccessResponse(data, message))
}

func created(c *gin.Context, data interface{}, message string) {
	resp := common.NewSuccessResponse(data, message)
	resp.Status = http.StatusCreated
	c.JSON(http.StatusCreated, resp)
}
