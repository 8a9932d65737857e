// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/constants"
)

// readinessChecker reports whether the service can take requests.
type readinessChecker interface {
	Ready(ctx context.Context) bool
}

// connectionChecker is the part of the NATS connection the readiness check uses.
type connectionChecker interface {
	IsConnected() bool
}

// newRouter builds the health check router.
func newRouter(app readinessChecker, conn connectionChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggerMiddleware())

	r.Get(constants.LivenessPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})
	r.Get(constants.ReadinessPath, func(w http.ResponseWriter, r *http.Request) {
		if !conn.IsConnected() || !app.Ready(r.Context()) {
			slog.WarnContext(r.Context(), "service not ready")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})

	return otelhttp.NewHandler(r, "event-roster-health")
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, app readinessChecker, conn connectionChecker, gracefulCloseWG *sync.WaitGroup) *http.Server {
	addr := flags.listenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newRouter(app, conn),
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}
