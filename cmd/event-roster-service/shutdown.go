// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/bootstrap"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

const gracefulShutdownSeconds = 25

// gracefulShutdown stops the sweep and the HTTP server, drains NATS so
// in-flight requests finish, then flushes telemetry and closes the stores.
func gracefulShutdown(
	stopSweep func(),
	httpServer *http.Server,
	natsConn *nats.Conn,
	app *bootstrap.Application,
	otelShutdown func(context.Context) error,
	gracefulCloseWG *sync.WaitGroup,
	cancel context.CancelFunc,
) {
	slog.Info("graceful shutdown started")
	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
	defer shutdownCancel()

	go func() {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.With(logging.ErrKey, err).Error("http shutdown error")
		}
		gracefulCloseWG.Done()
	}()

	if !natsConn.IsClosed() && !natsConn.IsDraining() {
		slog.Info("draining NATS connection")
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
			natsConn.Close()
		}
	}

	waited := make(chan struct{})
	go func() {
		gracefulCloseWG.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		slog.Info("graceful shutdown completed")
	case <-shutdownCtx.Done():
		slog.Warn("graceful shutdown timed out")
	}
	cancel()

	app.Close()
	if err := otelShutdown(context.Background()); err != nil {
		slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
	}
}
