package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/assistant-provisioner/internal/service/chat"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

const streamDone = "[DONE]"

type ChatHandler struct {
	service *chat.Service
	logger  logger.ContextLogger
}

func NewChatHandler(service *chat.Service, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.NewContextLogger(log.Named("handlers")),
	}
}

// writeEvent writes one server-sent event. Multi-line data becomes
// consecutive data lines of the same event.
func writeEvent(w io.Writer, data string) error {
	var b strings.Builder
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Chat streams completion tokens as server-sent events, terminated by
// "data: [DONE]".
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, "Invalid chat request", fmt.Errorf("%w: %v", chat.ErrInvalidRequest, err))
		return
	}

	ctx := c.Request.Context()
	assistant, messages, err := h.service.Resolve(ctx, req)
	if err != nil {
		handleError(c, h.logger, "Failed to start chat", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	emit := func(token string) error {
		if err := writeEvent(c.Writer, token); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if err := h.service.Stream(ctx, assistant, messages, emit); err != nil {
		// Headers are already sent; report the failure in-band.
		_ = writeEvent(c.Writer, "Error: "+err.Error())
	}
	_ = writeEvent(c.Writer, streamDone)
	c.Writer.Flush()
}
