// Package app wires the configured components together for both the HTTP
// server and the queue worker.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/assistant-provisioner/config"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/internal/platform/pinecone"
	"github.com/feichai0017/assistant-provisioner/internal/service/chat"
	"github.com/feichai0017/assistant-provisioner/internal/service/documents"
	"github.com/feichai0017/assistant-provisioner/internal/service/provision"
	"github.com/feichai0017/assistant-provisioner/pkg/lock"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
	"github.com/feichai0017/assistant-provisioner/pkg/queue"
)

type App struct {
	Provision *provision.Service
	Chat      *chat.Service
	Queue     queue.Queue

	closers []func() error
}

type Option func(*options)

type options struct {
	factory platform.Factory
	queue   queue.Queue
}

// WithFactory overrides the platform client factory.
func WithFactory(f platform.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithQueue overrides the queue selected by configuration.
func WithQueue(q queue.Queue) Option {
	return func(o *options) { o.queue = q }
}

// New builds every service from cfg.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	a := &App{}

	factory := o.factory
	if factory == nil {
		factory = pinecone.NewFactory(pinecone.Config{
			ControlURL:   cfg.Assistant.ControlURL,
			APIVersion:   cfg.Assistant.APIVersion,
			Instructions: cfg.Assistant.Instructions,
			Region:       cfg.Assistant.Region,
			ChatModel:    cfg.Assistant.ChatModel,
		}, log)
	}

	q := o.queue
	if q == nil {
		switch cfg.Queue.Backend {
		case config.QueueBackendAsynq:
			q = queue.NewAsynqQueue(queue.AsynqConfig{
				RedisAddr: cfg.Queue.RedisAddr,
				RedisDB:   cfg.Queue.RedisDB,
			})
		default:
			q = queue.NewLocalQueue(log)
		}
	}
	a.Queue = q
	a.closers = append(a.closers, q.Close)

	checker := provision.NewChecker(cfg.Assistant.APIKey, cfg.Assistant.Name, factory, log)
	uploader := provision.NewUploader(cfg.Assistant.DocsDir, log)
	poller := provision.NewPoller(cfg.Assistant.PollTimeout, cfg.Assistant.PollInterval, log)

	var orchestratorOpts []provision.OrchestratorOption
	source, err := documents.NewSource(ctx, cfg.Documents, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize document source: %w", err)
	}
	if source != nil {
		orchestratorOpts = append(orchestratorOpts,
			provision.WithMirror(documents.NewMirror(source, cfg.Documents.Prefix, log)))
	}
	orchestrator := provision.NewOrchestrator(checker, uploader, poller, cfg.Assistant.CreateTimeout, log, orchestratorOpts...)

	var serviceOpts []provision.ServiceOption
	switch cfg.Queue.Lock {
	case config.LockMemory:
		serviceOpts = append(serviceOpts, provision.WithLocker(lock.NewMemory(), cfg.Queue.LockTTL))
	case config.LockRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr, DB: cfg.Queue.RedisDB})
		a.closers = append(a.closers, rdb.Close)
		serviceOpts = append(serviceOpts, provision.WithLocker(lock.NewRedisLocker(rdb, "assistant-provisioner:"), cfg.Queue.LockTTL))
	}

	a.Provision = provision.NewService(orchestrator, checker, poller, q, log, serviceOpts...)
	a.Provision.Register()
	a.Chat = chat.NewService(a.Provision, log)

	return a, nil
}

// Close releases queue and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
