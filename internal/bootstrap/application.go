// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/i18n"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/infrastructure/config"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/infrastructure/gateway"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/infrastructure/postgres"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/constants"
)

// Application is the event service together with the stores it owns.
type Application struct {
	EventService  *service.EventService
	Events        domain.EventRepository
	Registrations domain.RegistrationRepository

	closers []func()
}

// NewApplication builds the event service on top of an open NATS connection.
func NewApplication(ctx context.Context, e Environment, conn *nats.Conn) (*Application, error) {
	app := &Application{}

	kv, err := OpenKeyValueStores(ctx, conn, e.NATSCreateBuckets)
	if err != nil {
		return nil, err
	}
	app.Events = store.NewNatsEventRepository(kv.Events)

	app.Registrations, err = app.registrationStore(ctx, e, kv)
	if err != nil {
		app.Close()
		return nil, err
	}

	communities, err := config.LoadFile(e.CommunityConfigFile)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load community configuration: %w", err)
	}

	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load locales: %w", err)
	}

	notifications := messaging.NewMessageBuilder(conn, e.NATSTimeout)
	gatewayClient := gateway.NewClient(messaging.NewMessageBuilder(conn, e.GatewayTimeout))

	app.EventService = service.NewEventService(
		app.Events,
		app.Registrations,
		gatewayClient,
		gatewayClient,
		notifications,
		gatewayClient,
		communities,
		catalog,
		concurrent.NewWorkerPool(e.WorkerCount),
		service.ServiceConfig{
			SkipRevisionCheck: e.SkipRevisionCheck,
			EditLinkBaseURL:   e.EditLinkBaseURL,
		},
	)
	return app, nil
}

func (a *Application) registrationStore(ctx context.Context, e Environment, kv *KeyValueStores) (domain.RegistrationRepository, error) {
	if e.RegistrationStore != constants.RegistrationStorePostgres {
		return store.NewNatsRegistrationRepository(kv.Registrations), nil
	}

	db, err := postgres.NewDB(ctx, e.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := db.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.InfoContext(ctx, "registration records stored in PostgreSQL")
	return postgres.NewRegistrationRepository(db), nil
}

// Ready reports whether both stores answer.
func (a *Application) Ready(ctx context.Context) bool {
	return a.EventService != nil && a.EventService.ServiceReady() &&
		a.Events.IsReady(ctx) && a.Registrations.IsReady(ctx)
}

// Close releases the resources opened by NewApplication.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
