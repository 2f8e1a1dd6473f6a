package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const DefaultAsynqQueue = "default"

// AsynqConfig 定义队列配置
type AsynqConfig struct {
	RedisAddr string
	RedisDB   int
	Queue     string
	// Timeout bounds a single task run on the worker.
	Timeout time.Duration
}

// AsynqQueue enqueues tasks into Redis for cmd/worker to run.
type AsynqQueue struct {
	client   *asynq.Client
	queue    string
	timeout  time.Duration
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewAsynqQueue(cfg AsynqConfig) *AsynqQueue {
	if cfg.Queue == "" {
		cfg.Queue = DefaultAsynqQueue
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &AsynqQueue{
		client:   asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}),
		queue:    cfg.Queue,
		timeout:  cfg.Timeout,
		handlers: make(map[string]Handler),
	}
}

// Enqueue 将任务加入队列. Tasks are never retried.
func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) (*TaskHandle, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	t := asynq.NewTask(task.Type, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(q.timeout),
		asynq.TaskID(task.ID),
		asynq.Queue(q.queue),
	)
	info, err := q.client.EnqueueContext(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &TaskHandle{
		ID:         info.ID,
		Type:       info.Type,
		Queue:      info.Queue,
		EnqueuedAt: task.CreatedAt,
	}, nil
}

// Handle records handler so Mux can serve it on the worker side.
func (q *AsynqQueue) Handle(taskType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = handler
}

// Mux builds an asynq mux serving every registered handler.
func (q *AsynqQueue) Mux() *asynq.ServeMux {
	q.mu.RLock()
	defer q.mu.RUnlock()
	mux := asynq.NewServeMux()
	for taskType, h := range q.handlers {
		mux.HandleFunc(taskType, AsynqHandler(h))
	}
	return mux
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}

// AsynqHandler decodes the asynq payload back into a Task. Failures are
// wrapped with asynq.SkipRetry.
func AsynqHandler(h Handler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var task Task
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return fmt.Errorf("failed to unmarshal task: %v: %w", err, asynq.SkipRetry)
		}
		if err := h(ctx, &task); err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return nil
	}
}
