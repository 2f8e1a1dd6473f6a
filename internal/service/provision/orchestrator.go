package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// Decision is where Inspect routes a run.
type Decision string

const (
	// DecisionAlreadyReady: the assistant exists and has files.
	DecisionAlreadyReady Decision = "already_ready"
	// DecisionUploadExisting: the assistant exists but has no files.
	DecisionUploadExisting Decision = "upload_existing"
	// DecisionCreate: the assistant does not exist.
	DecisionCreate Decision = "create"
)

// Plan is the result of the synchronous part of a run.
type Plan struct {
	Prereq    *Prerequisites
	Decision  Decision
	Assistant platform.Assistant
	Files     []models.RemoteFile
}

// Mirror fills the documents directory from an external source before
// upload.
type Mirror interface {
	Sync(ctx context.Context, dir string) (int, error)
}

// Orchestrator drives one provisioning run:
// Start -> Existing | Creating -> Uploading -> Polling -> terminal.
type Orchestrator struct {
	checker       *Checker
	uploader      *Uploader
	poller        *Poller
	mirror        Mirror
	createTimeout time.Duration
	logger        logger.Logger
}

type OrchestratorOption func(*Orchestrator)

// WithMirror syncs documents from m before each upload.
func WithMirror(m Mirror) OrchestratorOption {
	return func(o *Orchestrator) { o.mirror = m }
}

func NewOrchestrator(checker *Checker, uploader *Uploader, poller *Poller, createTimeout time.Duration, log logger.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		checker:       checker,
		uploader:      uploader,
		poller:        poller,
		createTimeout: createTimeout,
		logger:        log.Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Inspect runs Start and, for an existing assistant, inspects its files.
// It returns ErrConfig or ErrPlatform for the matching terminal states.
func (o *Orchestrator) Inspect(ctx context.Context) (*Plan, error) {
	prereq, err := o.checker.Check(ctx)
	if err != nil {
		return nil, err
	}
	if !prereq.Exists {
		return &Plan{Prereq: prereq, Decision: DecisionCreate}, nil
	}

	assistant := prereq.Client.Open(prereq.Info)
	files, err := assistant.ListFiles(ctx)
	if err != nil {
		o.logger.Error("Failed to list files of existing assistant",
			logger.String("assistant", prereq.Name),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: failed to list files: %w", ErrPlatform, err)
	}

	plan := &Plan{Prereq: prereq, Assistant: assistant, Files: files}
	if len(files) > 0 {
		plan.Decision = DecisionAlreadyReady
	} else {
		plan.Decision = DecisionUploadExisting
	}
	return plan, nil
}

// Execute runs the plan to a terminal state. A failed create is returned
// as ErrPlatform; upload failures never stop the run.
func (o *Orchestrator) Execute(ctx context.Context, plan *Plan) (*models.ProvisioningResult, error) {
	name := plan.Prereq.Name
	log := o.logger.With(logger.String("assistant", name), logger.String("decision", string(plan.Decision)))

	var (
		assistant platform.Assistant
		created   bool
	)
	switch plan.Decision {
	case DecisionAlreadyReady:
		log.Info("Assistant already has files, skipping upload", logger.Int("files", len(plan.Files)))
		return &models.ProvisioningResult{
			Status:  models.ResultSuccess,
			State:   models.StateAlreadyReady,
			Message: fmt.Sprintf("Assistant %s already exists with %d files", name, len(plan.Files)),
		}, nil
	case DecisionUploadExisting:
		assistant = plan.Assistant
	case DecisionCreate:
		log.Info("Creating assistant", logger.Duration("timeout", o.createTimeout))
		a, err := plan.Prereq.Client.CreateAssistant(ctx, name, o.createTimeout)
		if err != nil {
			log.Error("Failed to create assistant", logger.Error(err))
			return nil, fmt.Errorf("%w: failed to create assistant %s: %w", ErrPlatform, name, err)
		}
		assistant, created = a, true
	default:
		return nil, fmt.Errorf("unknown provisioning decision: %s", plan.Decision)
	}

	if o.mirror != nil {
		n, err := o.mirror.Sync(ctx, o.uploader.Dir())
		if err != nil {
			log.Warn("Document mirror sync failed, uploading local documents only", logger.Error(err))
		} else {
			log.Info("Document mirror synced", logger.Int("documents", n))
		}
	}

	outcome := o.uploader.Upload(ctx, assistant)
	if !outcome.Succeeded() {
		log.Warn("Upload finished with failures",
			logger.Strings("failed", outcome.FailedNames()),
			logger.String("message", outcome.Message),
		)
	}

	readiness, err := o.poller.PollUntilReady(ctx, assistant)
	if err != nil {
		return nil, err
	}

	result := &models.ProvisioningResult{Created: created}
	switch readiness.State {
	case models.ReadinessReady:
		result.Status = models.ResultSuccess
		result.State = models.StateSuccess
		if created {
			result.Message = "Assistant created and files uploaded successfully"
		} else {
			result.Message = "Assistant accessed and files uploaded successfully"
		}
	case models.ReadinessFailed:
		result.Status = models.ResultError
		result.State = models.StateFailure
		result.Message = readiness.Message
	default:
		result.Status = models.ResultProcessing
		result.State = models.StateFailure
		result.Message = readiness.Message
	}
	if !outcome.Succeeded() {
		result.Message += "; " + outcome.Message
	}

	log.Info("Provisioning finished",
		logger.String("status", string(result.Status)),
		logger.Bool("created", created),
		logger.String("message", result.Message),
	)
	return result, nil
}

// Run executes the whole state machine synchronously.
func (o *Orchestrator) Run(ctx context.Context) (*models.ProvisioningResult, error) {
	plan, err := o.Inspect(ctx)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx, plan)
}
