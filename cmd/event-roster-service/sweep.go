// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

// dueRescheduler runs one reschedule sweep.
type dueRescheduler interface {
	RescheduleDue(ctx context.Context) (int, error)
}

// startRescheduleSweep reschedules due recurring events every interval. The
// returned stop function cancels the sweep and waits for a running pass to
// finish. A zero interval disables the sweep.
func startRescheduleSweep(ctx context.Context, svc dueRescheduler, interval time.Duration) (stop func()) {
	if interval <= 0 {
		slog.InfoContext(ctx, "reschedule sweep disabled")
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		ctx := logging.AppendCtx(ctx, slog.String("job", "reschedule_sweep"))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := svc.RescheduleDue(ctx)
				if err != nil {
					slog.ErrorContext(ctx, "reschedule sweep failed", logging.ErrKey, err)
					continue
				}
				if n > 0 {
					slog.InfoContext(ctx, "reschedule sweep rescheduled events", "count", n)
				}
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
