package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// verdict is the outcome of evaluating one poll iteration.
type verdict int

const (
	verdictContinue verdict = iota
	verdictFailed
	verdictReady
	verdictTimedOut
)

// pollState carries the cross-iteration state of one wait.
type pollState struct {
	available map[string]struct{}
	failed    *models.RemoteFile
	total     int
	ready     int
	pending   int
}

func fileKey(f models.RemoteFile) string {
	if f.ID != "" {
		return f.ID
	}
	return f.Name
}

// observe folds one listing into the state.
func (s *pollState) observe(files []models.RemoteFile) {
	s.total = len(files)
	s.failed = nil
	s.ready = 0
	s.pending = 0
	for i := range files {
		f := files[i]
		if !f.Status.Terminal() {
			s.pending++
		}
		switch f.Status {
		case models.FileProcessingFailed:
			if s.failed == nil {
				s.failed = &f
			}
		case models.FileAvailable:
			s.available[fileKey(f)] = struct{}{}
		}
		if _, ok := s.available[fileKey(f)]; ok {
			s.ready++
		}
	}
}

// decide applies the guards in priority order:
// fail-fast > all-ready > timeout > continue.
// An empty file set is never ready.
func (s *pollState) decide(elapsed, timeout time.Duration) verdict {
	switch {
	case s.failed != nil:
		return verdictFailed
	case s.total > 0 && s.ready == s.total:
		return verdictReady
	case elapsed >= timeout:
		return verdictTimedOut
	default:
		return verdictContinue
	}
}

// Poller waits for an assistant's files to finish ingestion.
type Poller struct {
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	logger   logger.Logger
}

func NewPoller(timeout, interval time.Duration, log logger.Logger) *Poller {
	return &Poller{
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
		logger:   log.Named("poller"),
	}
}

// PollUntilReady lists the assistant's files until all are available, one
// fails, or the timeout elapses. A listing failure is returned as
// ErrPlatform.
func (p *Poller) PollUntilReady(ctx context.Context, assistant platform.Assistant) (*models.Readiness, error) {
	start := p.now()
	state := &pollState{available: make(map[string]struct{})}

	for iteration := 1; ; iteration++ {
		files, err := assistant.ListFiles(ctx)
		if err != nil {
			p.logger.Error("Failed to list assistant files",
				logger.String("assistant", assistant.Name()),
				logger.Int("iteration", iteration),
				logger.Error(err),
			)
			return nil, fmt.Errorf("%w: failed to list files: %w", ErrPlatform, err)
		}
		state.observe(files)
		elapsed := p.now().Sub(start)

		result := &models.Readiness{
			Total:      state.total,
			Available:  state.ready,
			Iterations: iteration,
		}

		switch state.decide(elapsed, p.timeout) {
		case verdictFailed:
			result.State = models.ReadinessFailed
			result.FailedFile = state.failed.Name
			result.Message = fmt.Sprintf("File %s failed to process", state.failed.Name)
			if state.failed.ErrorMessage != "" {
				result.Message += ": " + state.failed.ErrorMessage
			}
			p.logger.Error("Assistant file failed to process",
				logger.String("assistant", assistant.Name()),
				logger.String("file", state.failed.Name),
			)
			return result, nil
		case verdictReady:
			result.State = models.ReadinessReady
			result.Message = "All files have been processed and are available"
			p.logger.Info("Assistant files ready",
				logger.String("assistant", assistant.Name()),
				logger.Int("files", state.total),
				logger.Duration("elapsed", elapsed),
			)
			return result, nil
		case verdictTimedOut:
			result.State = models.ReadinessNotReady
			if state.total == 0 {
				result.Message = "No files found for the assistant"
			} else {
				result.Message = fmt.Sprintf("Files are still processing: %d of %d available after %s",
					state.ready, state.total, p.timeout)
			}
			p.logger.Warn("Timed out waiting for assistant files",
				logger.String("assistant", assistant.Name()),
				logger.Int("available", state.ready),
				logger.Int("total", state.total),
			)
			return result, nil
		}

		wait := p.interval
		if remaining := p.timeout - elapsed; remaining < wait {
			wait = remaining
		}
		p.logger.Debug("Waiting for assistant files",
			logger.String("assistant", assistant.Name()),
			logger.Int("available", state.ready),
			logger.Int("total", state.total),
			logger.Int("processing", state.pending),
			logger.Duration("wait", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
