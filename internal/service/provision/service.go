package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/pkg/lock"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
	"github.com/feichai0017/assistant-provisioner/pkg/queue"
)

// TaskTypeProvision is the queue task type of a background run.
const TaskTypeProvision = "assistant:provision"

const lockKeyPrefix = "provision:"

// Service exposes provisioning to the HTTP layer. Bootstrap schedules the
// long-running part on a queue; Done and the read operations are
// synchronous.
type Service struct {
	orchestrator *Orchestrator
	checker      *Checker
	poller       *Poller
	queue        queue.Queue
	locker       lock.Locker
	lockTTL      time.Duration
	logger       logger.ContextLogger
}

type ServiceOption func(*Service)

// WithLocker serializes background runs per assistant name.
func WithLocker(l lock.Locker, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.locker = l
		s.lockTTL = ttl
	}
}

func NewService(orchestrator *Orchestrator, checker *Checker, poller *Poller, q queue.Queue, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		orchestrator: orchestrator,
		checker:      checker,
		poller:       poller,
		queue:        q,
		locker:       lock.Noop{},
		lockTTL:      10 * time.Minute,
		logger:       logger.NewContextLogger(log.Named("provision")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register installs the background handler on the queue.
func (s *Service) Register() {
	s.queue.Handle(TaskTypeProvision, s.HandleProvisionTask)
}

// Bootstrap performs the existence check synchronously. An assistant that
// already has files is reported as success and nothing is scheduled;
// otherwise the run is queued and a processing result is returned at once.
func (s *Service) Bootstrap(ctx context.Context) (*models.ProvisioningResult, error) {
	log := s.logger.FromContext(ctx)

	plan, err := s.orchestrator.Inspect(ctx)
	if err != nil {
		return nil, err
	}
	if plan.Decision == DecisionAlreadyReady {
		return s.orchestrator.Execute(ctx, plan)
	}

	name := plan.Prereq.Name
	token, ok, err := s.locker.Acquire(ctx, lockKeyPrefix+name, s.lockTTL)
	if err != nil {
		log.Error("Failed to acquire provisioning lock", logger.String("assistant", name), logger.Error(err))
		return nil, err
	}
	if !ok {
		log.Info("Provisioning already in progress", logger.String("assistant", name))
		return &models.ProvisioningResult{
			Status:  models.ResultProcessing,
			State:   models.StateInProgress,
			Message: fmt.Sprintf("Provisioning of assistant %s is already in progress", name),
		}, nil
	}

	task := &queue.Task{
		Type: TaskTypeProvision,
		Payload: map[string]interface{}{
			"assistant": name,
			"decision":  string(plan.Decision),
			"lockToken": token,
		},
		Metadata: map[string]string{
			"requestId": logger.RequestID(ctx),
		},
	}
	handle, err := s.queue.Enqueue(ctx, task)
	if err != nil {
		if releaseErr := s.locker.Release(ctx, lockKeyPrefix+name, token); releaseErr != nil {
			log.Warn("Failed to release provisioning lock", logger.Error(releaseErr))
		}
		log.Error("Failed to schedule provisioning", logger.String("assistant", name), logger.Error(err))
		return nil, fmt.Errorf("failed to schedule provisioning: %w", err)
	}

	log.Info("Provisioning scheduled",
		logger.String("assistant", name),
		logger.String("decision", string(plan.Decision)),
		logger.String("taskId", handle.ID),
		logger.String("queue", handle.Queue),
	)

	message := "Assistant creation and file upload started in the background"
	if plan.Decision == DecisionUploadExisting {
		message = "File upload to the existing assistant started in the background"
	}
	return &models.ProvisioningResult{
		Status:  models.ResultProcessing,
		State:   models.StateScheduled,
		Message: message,
		TaskID:  handle.ID,
	}, nil
}

// HandleProvisionTask runs the orchestrator for a queued task. The handle
// captured at scheduling time cannot cross the queue, so the run re-derives
// it from the platform.
func (s *Service) HandleProvisionTask(ctx context.Context, task *queue.Task) error {
	log := s.logger.FromContext(ctx).With(logger.String("taskId", task.ID))
	name := task.String("assistant")

	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKeyPrefix+name, task.String("lockToken")); err != nil {
			log.Warn("Failed to release provisioning lock", logger.Error(err))
		}
	}()

	if name != s.checker.Name() {
		return fmt.Errorf("task is for assistant %q but this service manages %q", name, s.checker.Name())
	}

	result, err := s.orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("Background provisioning result",
		logger.String("assistant", name),
		logger.String("status", string(result.Status)),
		logger.String("state", string(result.State)),
		logger.Bool("created", result.Created),
		logger.String("message", result.Message),
	)
	if result.Status == models.ResultError {
		return fmt.Errorf("provisioning failed: %s", result.Message)
	}
	return nil
}

// open resolves a handle to the configured assistant, or ErrNotFound.
func (s *Service) open(ctx context.Context) (platform.Assistant, error) {
	prereq, err := s.checker.Check(ctx)
	if err != nil {
		return nil, err
	}
	return prereq.Open()
}

// Done re-derives readiness from the platform. It does not touch any
// in-flight run and may be called repeatedly.
func (s *Service) Done(ctx context.Context) (*models.Readiness, error) {
	assistant, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	return s.poller.PollUntilReady(ctx, assistant)
}

// Exists reports whether the configured assistant exists.
func (s *Service) Exists(ctx context.Context) (bool, error) {
	prereq, err := s.checker.Check(ctx)
	if err != nil {
		return false, err
	}
	return prereq.Exists, nil
}

// ListFiles returns the files attached to the configured assistant.
func (s *Service) ListFiles(ctx context.Context) ([]models.RemoteFile, error) {
	assistant, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	files, err := assistant.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list files: %w", ErrPlatform, err)
	}
	return files, nil
}

// Assistant returns a handle to the configured assistant for chat.
func (s *Service) Assistant(ctx context.Context) (platform.Assistant, error) {
	return s.open(ctx)
}
