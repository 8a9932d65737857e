// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

const (
	// PurgeBatchSize is how many events a purge fetches at a time.
	PurgeBatchSize = 200
	// PurgeLimit caps the events one purge invocation touches.
	PurgeLimit = 2000
)

// DeleteEvent soft deletes an event, cancelling its recurrence, and removes
// its announcement and reminder messages on a best effort basis. It returns
// the number of events modified.
func (s *EventService) DeleteEvent(ctx context.Context, eventUID string, suppressNotification bool) (int, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return 0, domain.ErrServiceUnavailable
	}

	event, err := s.EventRepository.Get(ctx, eventUID)
	if err != nil {
		return 0, err
	}
	ctx = eventContext(ctx, "delete_event", event)

	modified, err := s.EventRepository.SoftDelete(ctx, eventUID)
	if err != nil {
		slog.ErrorContext(ctx, "error soft deleting event", logging.ErrKey, err)
		return 0, err
	}
	if modified == 0 {
		return 0, nil
	}

	for _, ref := range []string{event.AnnouncementRef, event.ReminderMessageRef} {
		if ref == "" {
			continue
		}
		if err := s.AnnouncementSink.Remove(ctx, event.ChannelID, ref); err != nil {
			slog.WarnContext(ctx, "error removing message", "message_ref", ref, logging.ErrKey, err)
		}
	}

	if !suppressNotification {
		s.publish(ctx, models.Notification{
			Action:      models.ActionDeleted,
			EventUID:    event.UID,
			CommunityID: event.CommunityID,
		})
	}

	slog.InfoContext(ctx, "soft deleted event")

	return modified, nil
}

// HardDeleteEvent purges the event's registration records and then removes
// the event itself.
func (s *EventService) HardDeleteEvent(ctx context.Context, eventUID string) (int, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return 0, domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", eventUID))

	records, err := s.RegistrationRepository.DeleteAllForEvent(ctx, eventUID)
	if err != nil {
		slog.ErrorContext(ctx, "error purging registration records", logging.ErrKey, err)
		return 0, err
	}

	removed, err := s.EventRepository.HardDelete(ctx, eventUID)
	if err != nil {
		slog.ErrorContext(ctx, "error hard deleting event", logging.ErrKey, err)
		return 0, err
	}

	slog.DebugContext(ctx, "hard deleted event", "records_purged", records)

	return removed, nil
}

// PurgeEvents hard deletes events matching the filter, deleted ones
// included, in batches of PurgeBatchSize and at most PurgeLimit events per
// call. It returns the number of events removed. It stops at the first
// unavailable store error.
func (s *EventService) PurgeEvents(ctx context.Context, filter models.EventFilter) (int, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return 0, domain.ErrServiceUnavailable
	}
	filter.IncludeDeleted = true
	ctx = logging.AppendCtx(ctx, slog.String("operation", "purge_events"))

	var purged atomic.Int64
	visited := 0
	for visited < PurgeLimit {
		limit := min(PurgeBatchSize, PurgeLimit-visited)
		batch, err := s.EventRepository.FindMany(ctx, filter, limit)
		if err != nil {
			slog.ErrorContext(ctx, "error finding events to purge", logging.ErrKey, err)
			return int(purged.Load()), err
		}
		if len(batch) == 0 {
			break
		}
		visited += len(batch)

		before := purged.Load()
		functions := make([]func() error, 0, len(batch))
		for _, event := range batch {
			functions = append(functions, func() error {
				unlock := s.lockEvent(event.UID)
				defer unlock()
				n, err := s.HardDeleteEvent(ctx, event.UID)
				purged.Add(int64(n))
				if err != nil && domain.GetErrorType(err) == domain.ErrorTypeUnavailable {
					return err
				}
				if err != nil {
					slog.WarnContext(ctx, "error purging event", "event_uid", event.UID, logging.ErrKey, err)
				}
				return nil
			})
		}
		// An unavailable store stops the purge instead of failing every event.
		if err := s.WorkerPool.Run(ctx, functions...); err != nil {
			slog.ErrorContext(ctx, "purge stopped", "purged", purged.Load(), logging.ErrKey, err)
			return int(purged.Load()), err
		}

		// A batch that removed nothing would be fetched again forever.
		if purged.Load() == before || len(batch) < limit {
			break
		}
	}

	slog.InfoContext(ctx, "purged events", "purged", purged.Load(), "visited", visited)

	return int(purged.Load()), nil
}
