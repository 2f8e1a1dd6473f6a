package config

import (
	"os"
	"strings"
	"time"
)

const (
	DefaultControlURL    = "https://api.pinecone.io"
	DefaultAPIVersion    = "2025-01"
	DefaultDocsDir       = "docs"
	DefaultCreateTimeout = 30 * time.Second
	DefaultPollTimeout   = 3 * time.Minute
	DefaultPollInterval  = 5 * time.Second
)

type AssistantConfig struct {
	// APIKey and Name stay raw; emptiness is checked per request.
	APIKey        string
	Name          string
	ControlURL    string
	APIVersion    string
	Instructions  string
	Region        string
	ChatModel     string
	DocsDir       string
	CreateTimeout time.Duration
	PollTimeout   time.Duration
	PollInterval  time.Duration
}

func loadAssistantConfig() (AssistantConfig, error) {
	createTimeout, err := getDuration("ASSISTANT_CREATE_TIMEOUT", DefaultCreateTimeout)
	if err != nil {
		return AssistantConfig{}, err
	}
	pollTimeout, err := getDuration("POLL_TIMEOUT", DefaultPollTimeout)
	if err != nil {
		return AssistantConfig{}, err
	}
	pollInterval, err := getDuration("POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return AssistantConfig{}, err
	}

	return AssistantConfig{
		APIKey:        strings.TrimSpace(os.Getenv("PINECONE_API_KEY")),
		Name:          strings.TrimSpace(os.Getenv("PINECONE_ASSISTANT_NAME")),
		ControlURL:    strings.TrimRight(getEnv("PINECONE_CONTROL_URL", DefaultControlURL), "/"),
		APIVersion:    getEnv("PINECONE_API_VERSION", DefaultAPIVersion),
		Instructions:  getEnv("ASSISTANT_INSTRUCTIONS", "Answer questions using the uploaded documents."),
		Region:        getEnv("ASSISTANT_REGION", "us"),
		ChatModel:     getEnv("ASSISTANT_CHAT_MODEL", "gpt-4o"),
		DocsDir:       getEnv("DOCS_DIR", DefaultDocsDir),
		CreateTimeout: createTimeout,
		PollTimeout:   pollTimeout,
		PollInterval:  pollInterval,
	}, nil
}
