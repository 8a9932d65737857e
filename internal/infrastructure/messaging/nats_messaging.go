// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/nats-io/nats.go"
)

// DefaultRequestTimeout bounds a request when the builder has no timeout set.
const DefaultRequestTimeout = 5 * time.Second

// INatsConn is the subset of a NATS connection the service needs.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
}

// MessageBuilder builds messages and sends them to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
	Timeout  time.Duration
}

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn, timeout time.Duration) *MessageBuilder {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &MessageBuilder{
		NatsConn: natsConn,
		Timeout:  timeout,
	}
}

// publish sends the message to the NATS server.
func (m *MessageBuilder) publish(ctx context.Context, subject string, data []byte) error {
	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// request sends a request and waits for the reply. The context deadline wins
// over the timeout when it is sooner.
func (m *MessageBuilder) request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	msg, err := m.NatsConn.Request(subject, data, timeout)
	if err != nil {
		slog.ErrorContext(ctx, "error sending request to NATS", logging.ErrKey, err, "subject", subject)
		return nil, err
	}
	return msg, nil
}

// PublishJSON marshals payload and publishes it without waiting for a reply.
func (m *MessageBuilder) PublishJSON(ctx context.Context, subject string, payload any) error {
	if m.NatsConn == nil || !m.NatsConn.IsConnected() {
		return domain.NewUnavailableError("NATS connection is not available")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err, "subject", subject)
		return domain.NewInternalError("failed to encode message", err)
	}
	return m.publish(ctx, subject, data)
}

// RequestJSON sends payload as JSON and decodes the reply into out. A reply
// carrying an "error" field is returned as a domain error.
func (m *MessageBuilder) RequestJSON(ctx context.Context, subject string, payload any, out any) error {
	if m.NatsConn == nil || !m.NatsConn.IsConnected() {
		return domain.NewUnavailableError("NATS connection is not available")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err, "subject", subject)
		return domain.NewInternalError("failed to encode request", err)
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	msg, err := m.request(ctx, subject, data, timeout)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, nats.ErrNoResponders) || errors.Is(err, nats.ErrDisconnected) {
			return domain.NewUnavailableError(fmt.Sprintf("no reply on %s", subject), err)
		}
		return domain.NewInternalError(fmt.Sprintf("request on %s failed", subject), err)
	}

	return decodeReply(msg.Data, out)
}

// decodeReply decodes a JSON reply through mapstructure so the json tags of
// the target are honoured. Replies of the form {"error": "..."} become
// domain errors typed by their optional "type" field.
func decodeReply(data []byte, out any) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.NewInternalError("failed to decode reply", err)
	}

	if fields, ok := raw.(map[string]any); ok {
		if msg, _ := fields["error"].(string); msg != "" {
			kind, _ := fields["type"].(string)
			return replyError(kind, msg)
		}
	}

	if out == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return domain.NewInternalError("failed to create reply decoder", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return domain.NewInternalError("failed to decode reply", err)
	}
	return nil
}

func replyError(kind, msg string) error {
	switch kind {
	case domain.ErrorTypeNotFound.String():
		return domain.NewNotFoundError(msg)
	case domain.ErrorTypeValidation.String():
		return domain.NewValidationError(msg)
	case domain.ErrorTypeConflict.String():
		return domain.NewConflictError(msg)
	case domain.ErrorTypeUnavailable.String():
		return domain.NewUnavailableError(msg)
	default:
		return domain.NewInternalError(msg)
	}
}

// Publish sends a change notification on the community's feed.
func (m *MessageBuilder) Publish(ctx context.Context, notification models.Notification) error {
	if notification.Room == "" {
		notification.Room = models.NotificationRoom(notification.CommunityID)
	}

	slog.DebugContext(ctx, "publishing notification",
		"action", string(notification.Action),
		"room", notification.Room,
		"changes_count", len(notification.Changes),
	)

	return m.PublishJSON(ctx, models.NotificationSubject(notification.CommunityID), notification)
}
