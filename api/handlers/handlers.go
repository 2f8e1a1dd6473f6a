package handlers

import (
	"github.com/feichai0017/assistant-provisioner/internal/service/chat"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

type Handlers struct {
	Assistant *AssistantHandler
	Chat      *ChatHandler
}

func NewHandlers(
	provisionService ProvisionService,
	chatService *chat.Service,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Assistant: NewAssistantHandler(provisionService, logger),
		Chat:      NewChatHandler(chatService, logger),
	}
}
