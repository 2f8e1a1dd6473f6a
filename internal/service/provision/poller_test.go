package provision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform/platformtest"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

func TestPollStateDecide(t *testing.T) {
	failed := []models.RemoteFile{
		{Name: "a.pdf", Status: models.FileAvailable},
		{Name: "b.pdf", Status: models.FileProcessingFailed},
	}
	tests := []struct {
		name    string
		files   []models.RemoteFile
		elapsed time.Duration
		want    verdict
	}{
		{"failure beats timeout", failed, time.Hour, verdictFailed},
		{"all available", available("a.pdf", "b.pdf"), 0, verdictReady},
		{"ready beats timeout", available("a.pdf"), time.Hour, verdictReady},
		{"still processing", processing("a.pdf"), time.Second, verdictContinue},
		{"processing past timeout", processing("a.pdf"), time.Minute, verdictTimedOut},
		{"no files", nil, time.Second, verdictContinue},
		{"no files past timeout", nil, time.Minute, verdictTimedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &pollState{available: make(map[string]struct{})}
			s.observe(tt.files)
			assert.Equal(t, tt.want, s.decide(tt.elapsed, time.Minute))
		})
	}
}

func TestPollStateCountsPending(t *testing.T) {
	s := &pollState{available: make(map[string]struct{})}
	s.observe([]models.RemoteFile{
		{ID: "1", Name: "a.pdf", Status: models.FileAvailable},
		{ID: "2", Name: "b.pdf", Status: models.FileProcessing},
		{ID: "3", Name: "c.pdf", Status: "Deleting"},
	})
	assert.Equal(t, 3, s.total)
	assert.Equal(t, 1, s.ready)
	assert.Equal(t, 2, s.pending)

	s.observe(available("a.pdf", "b.pdf"))
	assert.Equal(t, 0, s.pending)
}

func TestPollFailsFast(t *testing.T) {
	fake := platformtest.NewFake()
	a := fake.AddAssistant(testAssistant,
		models.RemoteFile{ID: "1", Name: "a.pdf", Status: models.FileProcessing},
		models.RemoteFile{ID: "2", Name: "b.pdf", Status: models.FileProcessingFailed, ErrorMessage: "corrupt"},
	)
	p := NewPoller(time.Minute, time.Minute, logger.NewTestLogger())

	start := time.Now()
	r, err := p.PollUntilReady(context.Background(), a)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, models.ReadinessFailed, r.State)
	assert.Equal(t, "b.pdf", r.FailedFile)
	assert.Equal(t, "File b.pdf failed to process: corrupt", r.Message)
	assert.Equal(t, 1, r.Iterations)
}

func TestPollReadyOnFirstListing(t *testing.T) {
	fake := platformtest.NewFake()
	a := fake.AddAssistant(testAssistant, available("a.pdf", "b.pdf")...)
	p := NewPoller(time.Minute, time.Minute, logger.NewTestLogger())

	r, err := p.PollUntilReady(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, models.ReadinessReady, r.State)
	assert.Equal(t, 1, r.Iterations)
	assert.Equal(t, 2, r.Available)
	assert.Equal(t, "All files have been processed and are available", r.Message)
}

func TestPollWaitsForProcessing(t *testing.T) {
	fake := platformtest.NewFake()
	a := fake.AddAssistant(testAssistant)
	a.Script = [][]models.RemoteFile{
		processing("a.pdf"),
		processing("a.pdf"),
		available("a.pdf"),
	}
	p := NewPoller(5*time.Second, 10*time.Millisecond, logger.NewTestLogger())

	r, err := p.PollUntilReady(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, models.ReadinessReady, r.State)
	assert.Equal(t, 3, r.Iterations)
	assert.Equal(t, 3, a.ListCalls())
}

func TestPollTimesOut(t *testing.T) {
	fake := platformtest.NewFake()
	a := fake.AddAssistant(testAssistant, processing("a.pdf", "b.pdf")...)
	timeout := 150 * time.Millisecond
	p := NewPoller(timeout, 20*time.Millisecond, logger.NewTestLogger())

	start := time.Now()
	r, err := p.PollUntilReady(context.Background(), a)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, models.ReadinessNotReady, r.State)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
	assert.Greater(t, r.Iterations, 1)
	assert.Equal(t, 0, r.Available)
	assert.Contains(t, r.Message, "0 of 2 available")
}

func TestPollNoFilesIsNotReady(t *testing.T) {
	fake := platformtest.NewFake()
	a := fake.AddAssistant(testAssistant)
	p := NewPoller(50*time.Millisecond, 10*time.Millisecond, logger.NewTestLogger())

	r, err := p.PollUntilReady(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, models.ReadinessNotReady, r.State)
	assert.Equal(t, "No files found for the assistant", r.Message)
}

func TestPollListError(t *testing.T) {
	fake := platformtest.NewFake()
	a := fake.AddAssistant(testAssistant)
	a.ListErr = platformtest.ErrUnavailable
	p := NewPoller(time.Minute, time.Second, logger.NewTestLogger())

	_, err := p.PollUntilReady(context.Background(), a)
	assert.ErrorIs(t, err, ErrPlatform)
}

func TestPollHonoursCancellation(t *testing.T) {
	fake := platformtest.NewFake()
	a := fake.AddAssistant(testAssistant, processing("a.pdf")...)
	p := NewPoller(time.Minute, 10*time.Millisecond, logger.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.PollUntilReady(ctx, a)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
