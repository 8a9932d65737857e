// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackConcurrency returns a job that records the highest number of jobs
// seen running together.
func trackConcurrency(running, peak *atomic.Int64) func() error {
	return func() error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	}
}

func TestNewWorkerPool_Size(t *testing.T) {
	tests := []struct {
		workers int
		want    int
	}{
		{workers: 4, want: 4},
		{workers: 1, want: 1},
		{workers: 0, want: 1},
		{workers: -3, want: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NewWorkerPool(tt.workers).Size())
	}
}

func TestWorkerPool_RespectsLimit(t *testing.T) {
	pool := NewWorkerPool(3)

	for name, run := range map[string]func(t *testing.T, fns ...func() error){
		"Run": func(t *testing.T, fns ...func() error) {
			require.NoError(t, pool.Run(context.Background(), fns...))
		},
		"RunAll": func(t *testing.T, fns ...func() error) {
			assert.Empty(t, pool.RunAll(context.Background(), fns...))
		},
	} {
		t.Run(name, func(t *testing.T) {
			var running, peak atomic.Int64
			jobs := make([]func() error, 12)
			for i := range jobs {
				jobs[i] = trackConcurrency(&running, &peak)
			}
			run(t, jobs...)
			assert.LessOrEqual(t, peak.Load(), int64(3))
			assert.Positive(t, peak.Load())
		})
	}
}

func TestWorkerPool_RunStopsAtFirstError(t *testing.T) {
	pool := NewWorkerPool(1)
	outage := errors.New("store unavailable")

	var started atomic.Int64
	jobs := []func() error{
		func() error { started.Add(1); return nil },
		func() error { started.Add(1); return outage },
		func() error { started.Add(1); return nil },
		func() error { started.Add(1); return nil },
	}

	err := pool.Run(context.Background(), jobs...)
	assert.ErrorIs(t, err, outage)
	// One worker runs jobs in order, so nothing after the failing job starts.
	assert.Equal(t, int64(2), started.Load())
}

func TestWorkerPool_RunAllKeepsGoing(t *testing.T) {
	pool := NewWorkerPool(2)
	first, second := errors.New("event e1 failed"), errors.New("event e3 failed")

	var finished atomic.Int64
	jobs := []func() error{
		func() error { finished.Add(1); return first },
		func() error { finished.Add(1); return nil },
		func() error { finished.Add(1); return second },
		func() error { finished.Add(1); return nil },
	}

	errs := pool.RunAll(context.Background(), jobs...)
	assert.Equal(t, []error{first, second}, errs)
	assert.Equal(t, int64(4), finished.Load())
}

func TestWorkerPool_CancelledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	job := func() error { ran.Store(true); return nil }

	errs := pool.RunAll(ctx, job, job)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], context.Canceled)

	assert.ErrorIs(t, pool.Run(ctx, job), context.Canceled)
	assert.False(t, ran.Load())
}

func TestWorkerPool_NoJobs(t *testing.T) {
	pool := NewWorkerPool(2)
	assert.NoError(t, pool.Run(context.Background()))
	assert.Nil(t, pool.RunAll(context.Background()))
}
