// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"log/slog"
	"sort"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

// patchRetries bounds the read-modify-write attempts of a patch that keeps
// losing revision races.
const patchRetries = 3

// NatsEventRepository is the NATS KV store repository for events.
type NatsEventRepository struct {
	*NatsBaseRepository[models.Event]
	keyBuilder *KeyBuilder
}

// NewNatsEventRepository creates a new NATS KV store repository for events.
func NewNatsEventRepository(kvStore INatsKeyValue) *NatsEventRepository {
	return &NatsEventRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Event](kvStore, "event", JSONCodec{}),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// IsReady checks if the repository is ready
func (r *NatsEventRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

func (r *NatsEventRepository) key(eventUID string) string {
	return r.keyBuilder.EntityKeyEncoded(KeyPrefixEvent, eventUID)
}

// notFound maps a missing key to ErrEventNotFound.
func notFound(err error) error {
	if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return domain.NewNotFoundError("event not found", domain.ErrEventNotFound, err)
	}
	return err
}

// Get retrieves an event by uid
func (r *NatsEventRepository) Get(ctx context.Context, eventUID string) (*models.Event, error) {
	event, _, err := r.GetWithRevision(ctx, eventUID)
	return event, err
}

// GetWithRevision retrieves an event and its KV revision
func (r *NatsEventRepository) GetWithRevision(ctx context.Context, eventUID string) (*models.Event, uint64, error) {
	event, revision, err := r.NatsBaseRepository.GetWithRevision(ctx, r.key(eventUID))
	if err != nil {
		return nil, 0, notFound(err)
	}
	return event, revision, nil
}

// Upsert stores the event without a revision check
func (r *NatsEventRepository) Upsert(ctx context.Context, event *models.Event) error {
	_, err := r.NatsBaseRepository.Put(ctx, r.key(event.UID), event)
	return err
}

// Update stores the event if it is still at the given revision
func (r *NatsEventRepository) Update(ctx context.Context, event *models.Event, revision uint64) error {
	_, err := r.NatsBaseRepository.Update(ctx, r.key(event.UID), event, revision)
	return notFound(err)
}

// UpdateFields applies a partial update. It returns 1 when the event exists
// and 0 when it does not.
func (r *NatsEventRepository) UpdateFields(ctx context.Context, eventUID string, patch models.EventPatch) (int, error) {
	return r.modify(ctx, eventUID, func(e *models.Event) bool {
		return patch.Apply(e)
	}, false)
}

// SoftDelete marks the event deleted and stops it recurring. An event that is
// already deleted is not modified.
func (r *NatsEventRepository) SoftDelete(ctx context.Context, eventUID string) (int, error) {
	return r.modify(ctx, eventUID, func(e *models.Event) bool {
		if e.Deleted {
			return false
		}
		e.Deleted = true
		e.Frequency = models.FrequencyNone
		return true
	}, true)
}

// modify runs a revision checked read-modify-write, retrying lost races.
// With countChanged only writes are counted, otherwise any existing event.
func (r *NatsEventRepository) modify(ctx context.Context, eventUID string, change func(*models.Event) bool, countChanged bool) (int, error) {
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", eventUID))

	var lastErr error
	for attempt := 0; attempt < patchRetries; attempt++ {
		event, revision, err := r.NatsBaseRepository.GetWithRevision(ctx, r.key(eventUID))
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				return 0, nil
			}
			return 0, err
		}

		if !change(event) {
			if countChanged {
				return 0, nil
			}
			return 1, nil
		}

		_, err = r.NatsBaseRepository.Update(ctx, r.key(eventUID), event, revision)
		if err == nil {
			return 1, nil
		}
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return 0, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return 0, err
		}
		lastErr = err
		slog.DebugContext(ctx, "event changed during patch, retrying", "attempt", attempt+1)
	}

	return 0, lastErr
}

// HardDelete removes the event. JetStream accepts deletes of missing keys, so
// existence is checked first to report an accurate count.
func (r *NatsEventRepository) HardDelete(ctx context.Context, eventUID string) (int, error) {
	if _, err := r.GetRaw(ctx, r.key(eventUID)); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return 0, nil
		}
		return 0, err
	}
	if err := r.NatsBaseRepository.Delete(ctx, r.key(eventUID)); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return 0, nil
		}
		return 0, err
	}
	return 1, nil
}

// FindMany returns events matching the filter, oldest first. A limit of zero
// or less returns every match.
func (r *NatsEventRepository) FindMany(ctx context.Context, filter models.EventFilter, limit int) ([]*models.Event, error) {
	all, err := r.ListEntitiesEncoded(ctx, KeyPrefixEvent+"/", r.keyBuilder)
	if err != nil {
		return nil, err
	}

	events := make([]*models.Event, 0, len(all))
	for _, e := range all {
		if filter.Matches(e) {
			events = append(events, e)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].UID < events[j].UID
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// UpdateMany applies the patch to every matching event and returns how many
// changed.
func (r *NatsEventRepository) UpdateMany(ctx context.Context, filter models.EventFilter, patch models.EventPatch) (int, error) {
	events, err := r.FindMany(ctx, filter, 0)
	if err != nil {
		return 0, err
	}

	modified := 0
	for _, e := range events {
		n, err := r.modify(ctx, e.UID, func(current *models.Event) bool {
			return filter.Matches(current) && patch.Apply(current)
		}, true)
		if err != nil {
			slog.WarnContext(ctx, "error patching event", "event_uid", e.UID, logging.ErrKey, err)
			continue
		}
		modified += n
	}
	return modified, nil
}
