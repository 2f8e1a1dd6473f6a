package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// ErrInvalidRequest marks a malformed chat request.
var ErrInvalidRequest = errors.New("invalid chat request")

const maxHistory = 50

// Request is the body accepted by the chat endpoint.
type Request struct {
	Message string               `json:"message"`
	History []models.ChatMessage `json:"history"`
}

// Resolver yields a handle to the configured assistant.
type Resolver interface {
	Assistant(ctx context.Context) (platform.Assistant, error)
}

type Service struct {
	resolver Resolver
	logger   logger.ContextLogger
}

func NewService(resolver Resolver, log logger.Logger) *Service {
	return &Service{resolver: resolver, logger: logger.NewContextLogger(log.Named("chat"))}
}

// Messages validates req and builds the conversation sent to the platform:
// the history (trimmed to the most recent entries) followed by the new
// user message.
func Messages(req Request) ([]models.ChatMessage, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}

	history := req.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	messages := make([]models.ChatMessage, 0, len(history)+1)
	for i, m := range history {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			return nil, fmt.Errorf("%w: history[%d] has unknown role %q", ErrInvalidRequest, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, m)
	}
	return append(messages, models.ChatMessage{Role: models.RoleUser, Content: message}), nil
}

// Resolve validates req and resolves the assistant before any output is
// written, so failures can still become a regular error response.
func (s *Service) Resolve(ctx context.Context, req Request) (platform.Assistant, []models.ChatMessage, error) {
	messages, err := Messages(req)
	if err != nil {
		return nil, nil, err
	}
	assistant, err := s.resolver.Assistant(ctx)
	if err != nil {
		return nil, nil, err
	}
	return assistant, messages, nil
}

// Stream relays completion tokens to emit.
func (s *Service) Stream(ctx context.Context, assistant platform.Assistant, messages []models.ChatMessage, emit func(token string) error) error {
	log := s.logger.FromContext(ctx).With(logger.String("assistant", assistant.Name()))
	tokens := 0
	err := assistant.Chat(ctx, messages, func(token string) error {
		tokens++
		return emit(token)
	})
	if err != nil {
		log.Error("Chat stream failed", logger.Int("tokens", tokens), logger.Error(err))
		return err
	}
	log.Info("Chat stream completed", logger.Int("messages", len(messages)), logger.Int("tokens", tokens))
	return nil
}
