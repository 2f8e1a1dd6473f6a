package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// LocalQueue runs each task in its own goroutine inside the process.
type LocalQueue struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
	closed   bool
	logger   logger.Logger
}

func NewLocalQueue(log logger.Logger) *LocalQueue {
	return &LocalQueue{
		handlers: make(map[string]Handler),
		logger:   log.Named("queue"),
	}
}

func (q *LocalQueue) Handle(taskType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = handler
}

// Enqueue starts the task immediately. The task context keeps the values
// of ctx (such as the request id) but not its cancellation, so the task
// outlives the request that scheduled it.
func (q *LocalQueue) Enqueue(ctx context.Context, task *Task) (*TaskHandle, error) {
	q.mu.RLock()
	handler, ok := q.handlers[task.Type]
	closed := q.closed
	if ok && !closed {
		q.wg.Add(1)
	}
	q.mu.RUnlock()

	if closed {
		return nil, errors.New("queue is closed")
	}
	if !ok {
		return nil, fmt.Errorf("no handler registered for task type %s", task.Type)
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	go q.run(context.WithoutCancel(ctx), handler, task)

	return &TaskHandle{
		ID:         task.ID,
		Type:       task.Type,
		Queue:      "local",
		EnqueuedAt: task.CreatedAt,
	}, nil
}

func (q *LocalQueue) run(ctx context.Context, handler Handler, task *Task) {
	defer q.wg.Done()
	log := logger.NewContextLogger(q.logger).FromContext(ctx).With(
		logger.String("taskId", task.ID),
		logger.String("taskType", task.Type),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Background task panicked",
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
		}
	}()

	start := time.Now()
	log.Info("Background task started")
	if err := handler(ctx, task); err != nil {
		log.Error("Background task failed", logger.Error(err), logger.Duration("elapsed", time.Since(start)))
		return
	}
	log.Info("Background task completed", logger.Duration("elapsed", time.Since(start)))
}

// Wait blocks until every started task has returned.
func (q *LocalQueue) Wait() {
	q.wg.Wait()
}

// Close rejects new tasks. Running tasks are not interrupted.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}
