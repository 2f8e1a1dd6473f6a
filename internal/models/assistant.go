package models

// AssistantStatus is the platform's lifecycle state of an assistant.
type AssistantStatus string

const (
	AssistantInitializing AssistantStatus = "Initializing"
	AssistantReady        AssistantStatus = "Ready"
	AssistantFailed       AssistantStatus = "Failed"
	AssistantTerminating  AssistantStatus = "Terminating"
)

// AssistantInfo describes an assistant as listed by the control plane.
type AssistantInfo struct {
	Name   string          `json:"name"`
	Status AssistantStatus `json:"status"`
	Host   string          `json:"host"`
}

// Role of a chat participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
