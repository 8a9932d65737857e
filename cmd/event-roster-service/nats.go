// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/constants"
)

const tracerName = "github.com/linuxfoundation/lfx-v2-event-roster-service/cmd/event-roster-service"

// queueSubscriber is the part of the NATS connection used for intake.
type queueSubscriber interface {
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// createNatsSubscriptions subscribes the handler to every event roster
// subject in the service's queue group.
func createNatsSubscriptions(ctx context.Context, handler domain.MessageHandler, conn queueSubscriber) error {
	for _, subject := range handlers.Subjects() {
		slog.With("subject", subject, "queue", models.EventRosterQueue).Info("subscribing to NATS subject")
		if _, err := conn.QueueSubscribe(subject, models.EventRosterQueue, messageCallback(ctx, handler)); err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
	}
	return nil
}

// messageCallback continues the caller's trace and request id, then hands the
// message to the handler.
func messageCallback(ctx context.Context, handler domain.MessageHandler) nats.MsgHandler {
	tracer := otel.Tracer(tracerName)
	return func(msg *nats.Msg) {
		msgCtx := ctx
		if msg.Header != nil {
			msgCtx = otel.GetTextMapPropagator().Extract(msgCtx, propagation.HeaderCarrier(msg.Header))
			if requestID := msg.Header.Get(constants.RequestIDHeader); requestID != "" {
				msgCtx = context.WithValue(msgCtx, constants.RequestIDContextID, requestID)
				msgCtx = logging.AppendCtx(msgCtx, slog.String("request_id", requestID))
			}
		}

		msgCtx, span := tracer.Start(msgCtx, "process "+msg.Subject,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "nats"),
				attribute.String("messaging.destination.name", msg.Subject),
			),
		)
		defer span.End()

		handler.HandleMessage(msgCtx, messaging.NewNatsMsg(msg))
	}
}
