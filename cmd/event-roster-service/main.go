// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the event roster service. It answers the event roster
// NATS subjects, sweeps due recurring events and serves health checks.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/bootstrap"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/utils"
)

const serviceName = "lfx-v2-event-roster-service"

func main() {
	env, err := bootstrap.ParseEnv()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error parsing environment")
		os.Exit(1)
	}
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		os.Exit(1)
	}

	// The closed handler releases the wait group once draining finishes, or
	// stops the process when NATS gives up reconnecting.
	gracefulCloseWG.Add(1)
	natsConn, err := bootstrap.ConnectNATS(ctx, env, serviceName, func() {
		gracefulCloseWG.Done()
		select {
		case done <- syscall.SIGTERM:
		default:
		}
	})
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		os.Exit(1)
	}

	app, err := bootstrap.NewApplication(ctx, env, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error building the event service")
		natsConn.Close()
		os.Exit(1)
	}

	// The handler and the sweep share the per-event locks.
	locks := concurrent.NewKeyedMutex()
	app.EventService.EventLocks = locks
	eventHandler := handlers.NewEventHandler(app.EventService, locks)

	httpServer := setupHTTPServer(flags, app, natsConn, &gracefulCloseWG)

	if err := createNatsSubscriptions(ctx, eventHandler, natsConn); err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		os.Exit(1)
	}

	stopSweep := startRescheduleSweep(ctx, app.EventService, env.RescheduleSweepInterval)

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(stopSweep, httpServer, natsConn, app, otelShutdown, &gracefulCloseWG, cancel)
}
