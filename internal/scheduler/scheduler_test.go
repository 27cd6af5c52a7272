package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(nil, Job{Name: "bins", Interval: 0, Run: func(context.Context) {}})
	assert.Error(t, err)

	_, err = New(nil, Job{Name: "bins", Interval: time.Second})
	assert.Error(t, err)
}

func TestScheduler_FiresImmediately(t *testing.T) {
	var bins, trucks atomic.Int32
	s, err := New(nil,
		Job{Name: "bins", Interval: time.Hour, Run: func(context.Context) { bins.Add(1) }},
		Job{Name: "trucks", Interval: time.Hour, Run: func(context.Context) { trucks.Add(1) }},
	)
	require.NoError(t, err)

	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return bins.Load() == 1 && trucks.Load() == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()
	assert.False(t, s.Running())
}

func TestScheduler_IndependentCadence(t *testing.T) {
	var fast, slow atomic.Int32
	s, err := New(nil,
		Job{Name: "fast", Interval: 10 * time.Millisecond, Run: func(context.Context) { fast.Add(1) }},
		Job{Name: "slow", Interval: time.Hour, Run: func(context.Context) { slow.Add(1) }},
	)
	require.NoError(t, err)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return fast.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), slow.Load())
}

func TestScheduler_NoOverlapGuard(t *testing.T) {
	var running, peak atomic.Int32
	s, err := New(nil, Job{Name: "slow-fetch", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-ctx.Done()
		running.Add(-1)
	}})
	require.NoError(t, err)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return peak.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(0), running.Load(), "stop waits for in-flight runs")
}

func TestScheduler_StopCancelsRuns(t *testing.T) {
	cancelled := make(chan struct{})
	s, err := New(nil, Job{Name: "bins", Interval: time.Hour, Run: func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}})
	require.NoError(t, err)

	s.Start(context.Background())
	s.Stop()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("run was not cancelled")
	}
}
