package worker

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// TaskWorker serves tasks enqueued through queue.AsynqQueue.
type TaskWorker struct {
	BaseWorker
}

// NewTaskWorker serves mux. Failed tasks are archived without retry.
func NewTaskWorker(cfg *Config, mux *asynq.ServeMux, log logger.Logger) *TaskWorker {
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = map[string]int{"default": 1}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	log = log.Named("worker")
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("Task failed",
					logger.String("type", task.Type()),
					logger.Error(err),
				)
			}),
		},
	)

	return &TaskWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      mux,
			logger:   log,
			stopChan: make(chan struct{}),
		},
	}
}

func (w *TaskWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.logger.Info("Worker started")

	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.stopChan:
		}
	}()

	return nil
}
