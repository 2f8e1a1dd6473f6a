package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/assistant-provisioner/config"
	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform/platformtest"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Assistant: config.AssistantConfig{
			APIKey:        "pk-test",
			Name:          "handbook",
			DocsDir:       t.TempDir(),
			CreateTimeout: time.Second,
			PollTimeout:   50 * time.Millisecond,
			PollInterval:  10 * time.Millisecond,
		},
		Queue: config.QueueConfig{
			Backend: config.QueueBackendLocal,
			Lock:    config.LockMemory,
			LockTTL: time.Minute,
		},
	}
}

func TestNewWiresServices(t *testing.T) {
	fake := platformtest.NewFake()
	fake.AddAssistant("handbook", models.RemoteFile{ID: "1", Name: "a.pdf", Status: models.FileAvailable})

	a, err := New(context.Background(), testConfig(t), logger.NewTestLogger(), WithFactory(fake.Factory()))
	require.NoError(t, err)
	defer a.Close()

	result, err := a.Provision.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateAlreadyReady, result.State)

	assistant, err := a.Provision.Assistant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "handbook", assistant.Name())
}

func TestNewRejectsUnknownDocumentSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Documents.Source = "ftp"

	_, err := New(context.Background(), cfg, logger.NewTestLogger(), WithFactory(platformtest.NewFake().Factory()))
	assert.Error(t, err)
}
