// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/constants"
)

// ConnectNATS opens the NATS connection. onClosed runs once the connection is
// closed for good, after draining or after exhausting its reconnects.
func ConnectNATS(ctx context.Context, e Environment, name string, onClosed func()) (*nats.Conn, error) {
	conn, err := nats.Connect(
		e.NATSURL,
		nats.Name(name),
		nats.Timeout(e.NATSTimeout),
		nats.MaxReconnects(e.NATSMaxReconnect),
		nats.ReconnectWait(e.NATSReconnectWait),
		nats.DrainTimeout(e.NATSTimeout),
		nats.ConnectHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection established", "url", nc.ConnectedUrlRedacted())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.WarnContext(ctx, "NATS disconnected", logging.ErrKey, err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS reconnected", "url", nc.ConnectedUrlRedacted())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				slog.ErrorContext(ctx, "async NATS error", "subject", sub.Subject, "queue", sub.Queue, logging.ErrKey, err)
				return
			}
			slog.ErrorContext(ctx, "async NATS error", logging.ErrKey, err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed")
			if onClosed != nil {
				onClosed()
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", e.NATSURL, err)
	}
	return conn, nil
}

// KeyValueStores holds the JetStream buckets of the service.
type KeyValueStores struct {
	Events        jetstream.KeyValue
	Registrations jetstream.KeyValue
}

// OpenKeyValueStores binds the event and registration buckets. With create
// set, missing buckets are created.
func OpenKeyValueStores(ctx context.Context, conn *nats.Conn, create bool) (*KeyValueStores, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	open := func(bucket string) (jetstream.KeyValue, error) {
		var (
			kv  jetstream.KeyValue
			err error
		)
		if create {
			kv, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
				Bucket:  bucket,
				History: 1,
			})
		} else {
			kv, err = js.KeyValue(ctx, bucket)
		}
		if err != nil {
			return nil, fmt.Errorf("open key-value bucket %s: %w", bucket, err)
		}
		return kv, nil
	}

	events, err := open(constants.KVBucketEvents)
	if err != nil {
		return nil, err
	}
	registrations, err := open(constants.KVBucketEventRegistrations)
	if err != nil {
		return nil, err
	}
	return &KeyValueStores{Events: events, Registrations: registrations}, nil
}
