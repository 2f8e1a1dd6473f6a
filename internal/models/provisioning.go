package models

// ResultStatus is the client-facing status of a provisioning operation.
type ResultStatus string

const (
	ResultSuccess    ResultStatus = "success"
	ResultError      ResultStatus = "error"
	ResultProcessing ResultStatus = "processing"
)

// ProvisioningState names the orchestrator state a run finished in.
type ProvisioningState string

const (
	StateAlreadyReady ProvisioningState = "already_ready"
	StateScheduled    ProvisioningState = "scheduled"
	StateInProgress   ProvisioningState = "in_progress"
	StateSuccess      ProvisioningState = "success"
	StateFailure      ProvisioningState = "failure"
)

// ProvisioningResult is produced once per orchestration run.
type ProvisioningResult struct {
	Status  ResultStatus      `json:"status"`
	State   ProvisioningState `json:"state"`
	Created bool              `json:"created"`
	Message string            `json:"message"`
	TaskID  string            `json:"taskId,omitempty"`
}

// ReadinessState is the overall outcome of a poll.
type ReadinessState string

const (
	ReadinessReady    ReadinessState = "ready"
	ReadinessNotReady ReadinessState = "not_ready"
	ReadinessFailed   ReadinessState = "failed"
)

// Readiness is the result of waiting for remote files to finish ingestion.
type Readiness struct {
	State      ReadinessState `json:"state"`
	Message    string         `json:"message"`
	FailedFile string         `json:"failedFile,omitempty"`
	Total      int            `json:"total"`
	Available  int            `json:"available"`
	Iterations int            `json:"iterations"`
}
