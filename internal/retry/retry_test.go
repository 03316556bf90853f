package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	calls := 0

	err := Do(context.Background(), Config{Attempts: 3, Delay: time.Millisecond}, zap.New(core), "stage", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, logs.FilterMessage("Operation failed, retrying").Len())
	assert.Equal(t, 1, logs.FilterMessage("Operation succeeded after retries").Len())
}

func TestDoGivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	err := Do(context.Background(), Config{Attempts: 3, Delay: time.Millisecond}, nil, "stage", func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDoWaitsFixedDelay(t *testing.T) {
	delay := 20 * time.Millisecond
	start := time.Now()

	_ = Do(context.Background(), Config{Attempts: 3, Delay: delay}, nil, "stage", func(context.Context) error {
		return errors.New("fail")
	})

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 2*delay)
	assert.Less(t, elapsed, 2*delay+time.Second)
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, Config{Attempts: 5, Delay: time.Hour}, nil, "stage", func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoClampsAttempts(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Config{}, nil, "stage", func(context.Context) error {
		calls++
		return errors.New("fail")
	})
	assert.Equal(t, 1, calls)
}
