package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/service/chat"
	"github.com/feichai0017/assistant-provisioner/internal/service/provision"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Status  models.ResultStatus `json:"status"`
	Message string              `json:"message"`
	Error   string              `json:"error,omitempty"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provision.ErrConfig), errors.Is(err, chat.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, provision.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleError 统一错误处理
func handleError(c *gin.Context, log logger.ContextLogger, message string, err error) {
	status := statusFor(err)
	fields := []logger.Field{
		logger.String("path", c.Request.URL.Path),
		logger.Int("status", status),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.FromContext(c.Request.Context()).Error(message, fields...)
	} else {
		log.FromContext(c.Request.Context()).Warn(message, fields...)
	}

	c.JSON(status, ErrorResponse{
		Status:  models.ResultError,
		Message: message,
		Error:   err.Error(),
	})
}
