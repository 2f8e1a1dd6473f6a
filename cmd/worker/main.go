package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/feichai0017/assistant-provisioner/config"
	"github.com/feichai0017/assistant-provisioner/internal/app"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
	"github.com/feichai0017/assistant-provisioner/pkg/queue"
	"github.com/feichai0017/assistant-provisioner/pkg/worker"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	outputs := []string{"stdout"}
	if cfg.Log.File != "" {
		outputs = append(outputs, cfg.Log.File)
	}
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(outputs),
		logger.WithInitialFields(map[string]interface{}{"service": "worker"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// the worker always consumes from Redis, whatever QUEUE_BACKEND says
	q := queue.NewAsynqQueue(queue.AsynqConfig{
		RedisAddr: cfg.Queue.RedisAddr,
		RedisDB:   cfg.Queue.RedisDB,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log, app.WithQueue(q))
	if err != nil {
		log.Error("Failed to initialize services", logger.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	taskWorker := worker.NewTaskWorker(&worker.Config{
		RedisAddr:   cfg.Queue.RedisAddr,
		RedisDB:     cfg.Queue.RedisDB,
		Concurrency: cfg.Queue.Concurrency,
		Queues: map[string]int{
			queue.DefaultAsynqQueue: 1,
		},
	}, q.Mux(), log)

	if err := taskWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	if err := taskWorker.Stop(); err != nil {
		log.Error("Failed to stop worker", logger.Error(err))
	}
	log.Info("Worker stopped")
}
