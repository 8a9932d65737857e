// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/bootstrap"
)

// App holds the CLI dependencies. The NATS connection and the stores are
// opened only by the commands that need them.
type App struct {
	debug bool

	logger      *zap.Logger
	conn        *nats.Conn
	application *bootstrap.Application
}

func (a *App) initLogger() error {
	if a.logger != nil {
		return nil
	}
	var (
		logger *zap.Logger
		err    error
	)
	if a.debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

// connect opens NATS and builds the event service.
func (a *App) connect(ctx context.Context) (*bootstrap.Application, error) {
	if a.application != nil {
		return a.application, nil
	}

	e, err := bootstrap.ParseEnv()
	if err != nil {
		return nil, err
	}

	a.logger.Info("connecting to NATS", zap.String("url", e.NATSURL))
	a.conn, err = bootstrap.ConnectNATS(ctx, e, "lfx-v2-event-roster-admin", nil)
	if err != nil {
		return nil, err
	}

	a.application, err = bootstrap.NewApplication(ctx, e, a.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to build event service: %w", err)
	}
	a.logger.Debug("event service ready", zap.String("registration_store", e.RegistrationStore))
	return a.application, nil
}

// Close releases everything connect opened and flushes the logger.
func (a *App) Close() {
	if a.application != nil {
		a.application.Close()
		a.application = nil
	}
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
