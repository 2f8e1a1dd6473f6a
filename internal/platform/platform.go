// Package platform defines the capabilities the service needs from the
// hosted assistant platform.
package platform

import (
	"context"
	"time"

	"github.com/feichai0017/assistant-provisioner/internal/models"
)

// Client talks to the platform's control plane.
type Client interface {
	ListAssistants(ctx context.Context) ([]models.AssistantInfo, error)
	// CreateAssistant creates the assistant and waits up to timeout for it
	// to become ready.
	CreateAssistant(ctx context.Context, name string, timeout time.Duration) (Assistant, error)
	// Open returns a handle to an assistant returned by ListAssistants.
	Open(info models.AssistantInfo) Assistant
}

// Assistant is a live handle to one provisioned assistant. It is valid for
// a single orchestration run and is never persisted.
type Assistant interface {
	Name() string
	ListFiles(ctx context.Context) ([]models.RemoteFile, error)
	UploadFile(ctx context.Context, path string) (*models.RemoteFile, error)
	// Chat streams completion tokens to onToken until the platform ends
	// the stream or onToken returns an error.
	Chat(ctx context.Context, messages []models.ChatMessage, onToken func(token string) error) error
}

// Factory builds a Client from a credential. Construction must not
// perform network calls.
type Factory func(apiKey string) (Client, error)
