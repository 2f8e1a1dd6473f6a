package provision

import (
	"context"
	"fmt"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// Prerequisites is the outcome of a successful check.
type Prerequisites struct {
	Client platform.Client
	Name   string
	Exists bool
	// Info is set when Exists is true.
	Info models.AssistantInfo
}

// Open returns a handle to the existing assistant.
func (p *Prerequisites) Open() (platform.Assistant, error) {
	if !p.Exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p.Name)
	}
	return p.Client.Open(p.Info), nil
}

// Checker validates configuration, builds a platform client and resolves
// whether the assistant already exists.
type Checker struct {
	apiKey  string
	name    string
	factory platform.Factory
	logger  logger.Logger
}

func NewChecker(apiKey, name string, factory platform.Factory, log logger.Logger) *Checker {
	return &Checker{
		apiKey:  apiKey,
		name:    name,
		factory: factory,
		logger:  log.Named("checker"),
	}
}

// Name returns the configured assistant name.
func (c *Checker) Name() string { return c.name }

// Check never calls the platform when configuration is missing. When the
// assistant listing fails, existence is unknown and ErrPlatform is returned
// rather than a false negative.
func (c *Checker) Check(ctx context.Context) (*Prerequisites, error) {
	if c.apiKey == "" || c.name == "" {
		c.logger.Error("Missing assistant configuration",
			logger.Bool("hasApiKey", c.apiKey != ""),
			logger.Bool("hasName", c.name != ""),
		)
		return nil, fmt.Errorf("%w: api key and assistant name are required", ErrConfig)
	}

	client, err := c.factory(c.apiKey)
	if err != nil {
		c.logger.Error("Failed to create platform client", logger.Error(err))
		return nil, fmt.Errorf("%w: failed to create platform client: %v", ErrConfig, err)
	}

	assistants, err := client.ListAssistants(ctx)
	if err != nil {
		c.logger.Error("Failed to list assistants",
			logger.String("assistant", c.name),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: failed to list assistants: %w", ErrPlatform, err)
	}

	prereq := &Prerequisites{Client: client, Name: c.name}
	for _, a := range assistants {
		if a.Name == c.name {
			prereq.Exists = true
			prereq.Info = a
			break
		}
	}

	c.logger.Debug("Checked assistant existence",
		logger.String("assistant", c.name),
		logger.Bool("exists", prereq.Exists),
	)
	return prereq, nil
}
