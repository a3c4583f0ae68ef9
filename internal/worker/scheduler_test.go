package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var fast, failing, panicking atomic.Int32
	core, logs := observer.New(zapcore.ErrorLevel)
	s := NewScheduler(zap.New(core),
		Job{Name: "fast", Every: 5 * time.Millisecond, Run: func(context.Context) error {
			fast.Add(1)
			return nil
		}},
		Job{Name: "failing", Every: 5 * time.Millisecond, Run: func(context.Context) error {
			failing.Add(1)
			return errors.New("boom")
		}},
		Job{Name: "panicking", Every: 5 * time.Millisecond, Run: func(context.Context) error {
			panicking.Add(1)
			panic("bad job")
		}},
		Job{Name: "disabled", Every: 0, Run: func(context.Context) error {
			t.Error("disabled job ran")
			return nil
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return fast.Load() >= 3 && failing.Load() >= 3 && panicking.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.NotZero(t, logs.FilterMessage("job failed").FilterField(zap.String("job", "failing")).Len())
	assert.NotZero(t, logs.FilterMessage("job failed").FilterField(zap.String("job", "panicking")).Len())
}

func TestScheduler_RunsImmediately(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ran := make(chan struct{}, 1)
	s := NewScheduler(zap.NewNop(), Job{Name: "hourly", Every: time.Hour, Run: func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run at start")
	}
	cancel()
	assert.NoError(t, <-done)
}
