// pkg/queue/queue.go
package queue

import (
	"context"
	"time"
)

// Queue schedules tasks that run detached from the caller. No result is
// returned to the caller; outcomes are only visible in logs.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) (*TaskHandle, error)
	// Handle registers the handler for a task type.
	Handle(taskType string, handler Handler)
	Close() error
}

// Handler runs one task. Errors are logged at the task boundary and are
// never retried.
type Handler func(ctx context.Context, task *Task) error

// Task 定义任务结构
type Task struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  map[string]string      `json:"metadata"`
	CreatedAt time.Time              `json:"createdAt"`
}

// String returns the payload value for key, or "".
func (t *Task) String(key string) string {
	v, _ := t.Payload[key].(string)
	return v
}

// TaskHandle identifies a scheduled task. Callers may ignore it; it exists
// so a run can later be correlated with its outcome.
type TaskHandle struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Queue      string    `json:"queue"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
