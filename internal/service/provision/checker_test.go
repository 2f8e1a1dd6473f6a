package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/internal/platform/platformtest"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

func TestCheckMissingConfig(t *testing.T) {
	tests := []struct {
		name, apiKey, assistant string
	}{
		{"no key", "", testAssistant},
		{"no name", "pk-test", ""},
		{"nothing", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			factory := func(string) (platform.Client, error) {
				calls++
				return platformtest.NewFake(), nil
			}
			c := NewChecker(tt.apiKey, tt.assistant, factory, logger.NewTestLogger())

			_, err := c.Check(context.Background())
			assert.ErrorIs(t, err, ErrConfig)
			assert.Zero(t, calls)
		})
	}
}

func TestCheckFactoryError(t *testing.T) {
	factory := func(string) (platform.Client, error) { return nil, errors.New("bad key") }
	c := NewChecker("pk test", testAssistant, factory, logger.NewTestLogger())

	_, err := c.Check(context.Background())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestCheckListError(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.fake.ListErr = platformtest.ErrUnavailable

	_, err := f.checker.Check(context.Background())
	assert.ErrorIs(t, err, ErrPlatform)
	assert.ErrorIs(t, err, platformtest.ErrUnavailable)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestCheckExistence(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.fake.AddAssistant(testAssistant + "-old")

	prereq, err := f.checker.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, prereq.Exists)
	_, err = prereq.Open()
	assert.ErrorIs(t, err, ErrNotFound)

	f.fake.AddAssistant(testAssistant)
	prereq, err = f.checker.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, prereq.Exists)
	assert.Equal(t, testAssistant, prereq.Info.Name)

	a, err := prereq.Open()
	require.NoError(t, err)
	assert.Equal(t, testAssistant, a.Name())
	assert.Equal(t, 2, f.fake.ListCalls())
}
