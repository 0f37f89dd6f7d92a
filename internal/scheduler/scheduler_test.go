package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsPastDue(t *testing.T) {
	scheduled := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		scheduled time.Time
		started   time.Time
		want      bool
	}{
		{name: "on time", scheduled: scheduled, started: scheduled.Add(10 * time.Millisecond), want: false},
		{name: "at grace limit", scheduled: scheduled, started: scheduled.Add(time.Second), want: false},
		{name: "late", scheduled: scheduled, started: scheduled.Add(1500 * time.Millisecond), want: true},
		{name: "unknown fire time", scheduled: time.Time{}, started: scheduled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPastDue(tt.scheduled, tt.started, DefaultGrace))
		})
	}
}

func TestScheduler_RegisterRejectsInvalidSpec(t *testing.T) {
	s := New(zap.NewNop().Sugar())

	err := s.Register("deployments", "every five minutes", func(context.Context, bool) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployments")
}

func TestScheduler_RegisterRequiresSecondsField(t *testing.T) {
	s := New(zap.NewNop().Sugar())

	assert.NoError(t, s.Register("deployments", "0 */5 * * * *", func(context.Context, bool) {}))
	assert.Error(t, s.Register("incidents", "*/5 * * * *", func(context.Context, bool) {}))
}

func TestScheduler_FiresAndStopWaits(t *testing.T) {
	s := New(zap.NewNop().Sugar())

	var (
		fired    = make(chan struct{}, 1)
		finished atomic.Bool
	)
	require.NoError(t, s.Register("deployments", "@every 1s", func(ctx context.Context, _ bool) {
		select {
		case fired <- struct{}{}:
		default:
		}
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
	}))

	s.Start(context.Background())

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	s.Stop()
	assert.True(t, finished.Load(), "Stop returns after the running job")
}

func TestScheduler_TriggerAll(t *testing.T) {
	s := New(zap.NewNop().Sugar())

	var calls atomic.Int32
	var late atomic.Bool
	job := func(_ context.Context, pastDue bool) {
		calls.Add(1)
		if pastDue {
			late.Store(true)
		}
	}
	require.NoError(t, s.Register("deployments", "0 0 0 1 1 *", job))
	require.NoError(t, s.Register("incidents", "0 0 0 1 1 *", job))

	s.Start(context.Background())
	s.TriggerAll()
	s.Stop()

	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, late.Load())
}

func TestScheduler_ParentCancelDoesNotInterruptRuns(t *testing.T) {
	s := New(zap.NewNop().Sugar())

	started := make(chan struct{})
	var runErr atomic.Value
	require.NoError(t, s.Register("deployments", "0 0 0 1 1 *", func(ctx context.Context, _ bool) {
		close(started)
		select {
		case <-ctx.Done():
		case <-time.After(200 * time.Millisecond):
		}
		runErr.Store(fmt.Sprint(ctx.Err()))
	}))

	parent, cancel := context.WithCancel(context.Background())
	s.Start(parent)
	s.TriggerAll()

	<-started
	cancel()
	s.Stop()

	assert.Equal(t, "<nil>", runErr.Load())
	assert.Error(t, s.context().Err(), "Stop cancels the job context after runs returned")
}
