// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/concurrent"
)

// EventHandler handles the event roster request subjects.
type EventHandler struct {
	eventService *service.EventService
	// locks serializes the mutations of one event across subjects.
	locks *concurrent.KeyedMutex
}

var _ domain.MessageHandler = (*EventHandler)(nil)

// NewEventHandler creates an EventHandler.
func NewEventHandler(eventService *service.EventService, locks *concurrent.KeyedMutex) *EventHandler {
	if locks == nil {
		locks = concurrent.NewKeyedMutex()
	}
	return &EventHandler{
		eventService: eventService,
		locks:        locks,
	}
}

// Subjects lists every subject the handler answers.
func Subjects() []string {
	return []string{
		models.EventCreateSubject,
		models.EventUpdateSubject,
		models.EventDeleteSubject,
		models.EventUndeleteSubject,
		models.EventRescheduleSubject,
		models.EventRosterSubject,
		models.SignupSubject,
		models.DropOutSubject,
	}
}

func (h *EventHandler) HandlerReady() bool {
	return h.eventService != nil && h.eventService.ServiceReady()
}

// updateResponse is the reply to update and undelete requests.
type updateResponse struct {
	Event    *models.Event       `json:"event"`
	Modified bool                `json:"modified"`
	Changes  map[string]any      `json:"changes,omitempty"`
	Promoted *models.Participant `json:"promoted,omitempty"`
}

// HandleMessage implements domain.MessageHandler interface
func (h *EventHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) (any, error){
		models.EventCreateSubject:     h.handleCreate,
		models.EventUpdateSubject:     h.handleUpdate,
		models.EventDeleteSubject:     h.handleDelete,
		models.EventUndeleteSubject:   h.handleUndelete,
		models.EventRescheduleSubject: h.handleReschedule,
		models.EventRosterSubject:     h.handleRoster,
		models.SignupSubject:          h.handleSignup,
		models.DropOutSubject:         h.handleDropOut,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		h.respondError(ctx, msg, domain.NewValidationError("unknown subject "+subject))
		return
	}

	result, err := handler(ctx, msg)
	if err != nil {
		level := slog.LevelError
		switch domain.GetErrorType(err) {
		case domain.ErrorTypeValidation, domain.ErrorTypeNotFound, domain.ErrorTypeConflict:
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "error handling message", logging.ErrKey, err)
		h.respondError(ctx, msg, err)
		return
	}

	if !msg.HasReply() {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
		return
	}
	response, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling response", logging.ErrKey, err)
		h.respondError(ctx, msg, domain.NewInternalError("failed to encode response", err))
		return
	}
	if err := msg.Respond(response); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
		return
	}
	slog.DebugContext(ctx, "responded to NATS message")
}

func (h *EventHandler) respondError(ctx context.Context, msg domain.Message, err error) {
	if !msg.HasReply() {
		return
	}
	body, _ := json.Marshal(models.ErrorResponse{
		Error: err.Error(),
		Type:  domain.GetErrorType(err).String(),
	})
	if respErr := msg.Respond(body); respErr != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, respErr)
	}
}

func decode[T any](msg domain.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Data(), &v); err != nil {
		return v, domain.NewValidationError("invalid request body", err)
	}
	return v, nil
}

func requireUID(uid string) error {
	if strings.TrimSpace(uid) == "" {
		return domain.NewValidationError("event_uid is required")
	}
	return nil
}

// locked runs fn while holding the event's lock.
func (h *EventHandler) locked(eventUID string, fn func() (any, error)) (any, error) {
	unlock := h.locks.Lock(eventUID)
	defer unlock()
	return fn()
}

func (h *EventHandler) handleCreate(ctx context.Context, msg domain.Message) (any, error) {
	event, err := decode[models.Event](msg)
	if err != nil {
		return nil, err
	}
	return h.eventService.CreateEvent(ctx, &event)
}

func (h *EventHandler) handleUpdate(ctx context.Context, msg domain.Message) (any, error) {
	event, err := decode[models.Event](msg)
	if err != nil {
		return nil, err
	}
	if err := requireUID(event.UID); err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", event.UID))
	return h.locked(event.UID, func() (any, error) {
		result, err := h.eventService.UpdateEvent(ctx, &event, service.UpdateOptions{})
		if err != nil {
			return nil, err
		}
		return toUpdateResponse(result), nil
	})
}

func (h *EventHandler) handleUndelete(ctx context.Context, msg domain.Message) (any, error) {
	req, err := decode[models.EventRefRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := requireUID(req.EventUID); err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", req.EventUID))
	return h.locked(req.EventUID, func() (any, error) {
		result, err := h.eventService.UndeleteEvent(ctx, req.EventUID)
		if err != nil {
			return nil, err
		}
		return toUpdateResponse(result), nil
	})
}

func toUpdateResponse(result *service.UpdateResult) updateResponse {
	return updateResponse{
		Event:    result.Event,
		Modified: result.Modified,
		Changes:  result.Changes,
		Promoted: result.Promoted,
	}
}

func (h *EventHandler) handleDelete(ctx context.Context, msg domain.Message) (any, error) {
	req, err := decode[models.EventRefRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := requireUID(req.EventUID); err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", req.EventUID))
	return h.locked(req.EventUID, func() (any, error) {
		modified, err := h.eventService.DeleteEvent(ctx, req.EventUID, req.SuppressNotification)
		if err != nil {
			return nil, err
		}
		return models.DeleteResponse{Modified: modified}, nil
	})
}

func (h *EventHandler) handleReschedule(ctx context.Context, msg domain.Message) (any, error) {
	req, err := decode[models.EventRefRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := requireUID(req.EventUID); err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", req.EventUID))
	return h.locked(req.EventUID, func() (any, error) {
		result, err := h.eventService.RescheduleEvent(ctx, req.EventUID)
		if err != nil {
			return nil, err
		}
		return models.RescheduleResponse{
			Rescheduled: result.Rescheduled,
			EventUID:    result.EventUID,
			NewEventUID: result.NewEventUID,
		}, nil
	})
}

func (h *EventHandler) handleRoster(ctx context.Context, msg domain.Message) (any, error) {
	req, err := decode[models.EventRefRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := requireUID(req.EventUID); err != nil {
		return nil, err
	}
	return h.eventService.GetRoster(ctx, req.EventUID)
}

func (h *EventHandler) handleSignup(ctx context.Context, msg domain.Message) (any, error) {
	req, err := decode[models.SignupRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := requireUID(req.EventUID); err != nil {
		return nil, err
	}
	if req.Participant.IsEmpty() {
		return nil, domain.NewValidationError("participant is required")
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", req.EventUID))
	return h.locked(req.EventUID, func() (any, error) {
		return h.eventService.SignUp(ctx, req.EventUID, req.Participant, req.Timestamp)
	})
}

func (h *EventHandler) handleDropOut(ctx context.Context, msg domain.Message) (any, error) {
	req, err := decode[models.DropOutRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := requireUID(req.EventUID); err != nil {
		return nil, err
	}
	if req.Participant.IsEmpty() {
		return nil, domain.NewValidationError("participant is required")
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", req.EventUID))
	return h.locked(req.EventUID, func() (any, error) {
		return h.eventService.DropOut(ctx, req.EventUID, req.Participant)
	})
}
