package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// ProvisionService is what the assistant routes need from provisioning.
type ProvisionService interface {
	Bootstrap(ctx context.Context) (*models.ProvisioningResult, error)
	Done(ctx context.Context) (*models.Readiness, error)
	Exists(ctx context.Context) (bool, error)
	ListFiles(ctx context.Context) ([]models.RemoteFile, error)
}

type AssistantHandler struct {
	service ProvisionService
	logger  logger.ContextLogger
}

// StatusResponse is the body of bootstrap and done.
type StatusResponse struct {
	Status  models.ResultStatus `json:"status"`
	Message string              `json:"message"`
	Created bool                `json:"created,omitempty"`
	TaskID  string              `json:"taskId,omitempty"`
}

type FileResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func NewAssistantHandler(service ProvisionService, log logger.Logger) *AssistantHandler {
	return &AssistantHandler{
		service: service,
		logger:  logger.NewContextLogger(log.Named("handlers")),
	}
}

// Bootstrap provisions the assistant. It answers 200 when the assistant is
// already populated and 202 once background provisioning is scheduled.
func (h *AssistantHandler) Bootstrap(c *gin.Context) {
	result, err := h.service.Bootstrap(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, "Failed to bootstrap assistant", err)
		return
	}

	status := http.StatusOK
	switch result.Status {
	case models.ResultProcessing:
		status = http.StatusAccepted
	case models.ResultError:
		status = http.StatusInternalServerError
	}
	c.JSON(status, StatusResponse{
		Status:  result.Status,
		Message: result.Message,
		Created: result.Created,
		TaskID:  result.TaskID,
	})
}

// Done reports whether every assistant file has been processed.
func (h *AssistantHandler) Done(c *gin.Context) {
	readiness, err := h.service.Done(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, "Failed to check assistant readiness", err)
		return
	}

	switch readiness.State {
	case models.ReadinessReady:
		c.JSON(http.StatusOK, StatusResponse{Status: models.ResultSuccess, Message: readiness.Message})
	case models.ReadinessFailed:
		c.JSON(http.StatusInternalServerError, StatusResponse{Status: models.ResultError, Message: readiness.Message})
	default:
		c.JSON(http.StatusAccepted, StatusResponse{Status: models.ResultProcessing, Message: readiness.Message})
	}
}

// CheckAssistant reports whether the configured assistant exists.
func (h *AssistantHandler) CheckAssistant(c *gin.Context) {
	exists, err := h.service.Exists(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, "Failed to check assistant", err)
		return
	}

	message := "Assistant exists"
	if !exists {
		message = "Assistant does not exist"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  models.ResultSuccess,
		"exists":  exists,
		"message": message,
	})
}

// ListAssistantFiles lists the files attached to the assistant.
func (h *AssistantHandler) ListAssistantFiles(c *gin.Context) {
	files, err := h.service.ListFiles(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, "Failed to list assistant files", err)
		return
	}

	out := make([]FileResponse, len(files))
	for i, f := range files {
		out[i] = FileResponse{
			ID:     f.ID,
			Name:   f.Name,
			Size:   f.Size,
			Status: string(f.Status),
		}
		if !f.CreatedAt.IsZero() {
			out[i].CreatedAt = f.CreatedAt.Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": models.ResultSuccess,
		"files":  out,
	})
}

// Health is a liveness probe.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
