// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

// NatsRegistrationRepository is the NATS KV store repository for registration
// records. Records are keyed under their event so one event's records can be
// listed without reading the others.
type NatsRegistrationRepository struct {
	*NatsBaseRepository[models.RegistrationRecord]
	keyBuilder *KeyBuilder
}

// NewNatsRegistrationRepository creates a new NATS KV store repository for
// registration records.
func NewNatsRegistrationRepository(kvStore INatsKeyValue) *NatsRegistrationRepository {
	return &NatsRegistrationRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.RegistrationRecord](kvStore, "registration record", MsgpackCodec{}),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// IsReady checks if the repository is ready
func (r *NatsRegistrationRepository) IsReady(ctx context.Context) bool {
	return r.NatsBaseRepository.IsReady()
}

func (r *NatsRegistrationRepository) list(ctx context.Context, eventUID string) ([]keyed[models.RegistrationRecord], error) {
	found, err := r.listEncoded(ctx, r.keyBuilder.EventRecordsPattern(eventUID), r.keyBuilder)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(found, func(a, b keyed[models.RegistrationRecord]) int {
		return a.entity.InsertedAt.Compare(b.entity.InsertedAt)
	})
	return found, nil
}

// ListByEvent returns the event's records ordered by InsertedAt
func (r *NatsRegistrationRepository) ListByEvent(ctx context.Context, eventUID string) ([]*models.RegistrationRecord, error) {
	found, err := r.list(ctx, eventUID)
	if err != nil {
		return nil, err
	}
	records := make([]*models.RegistrationRecord, len(found))
	for i, f := range found {
		records[i] = f.entity
	}
	return records, nil
}

// FetchOne returns the earliest record of the participant with the given id
// or tag.
func (r *NatsRegistrationRepository) FetchOne(ctx context.Context, eventUID, idOrTag string) (*models.RegistrationRecord, error) {
	records, err := r.ListByEvent(ctx, eventUID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.MatchesKey(idOrTag) {
			return rec, nil
		}
	}
	return nil, domain.NewNotFoundError(fmt.Sprintf("no registration record for '%s'", idOrTag))
}

// Create stores a new record, assigning its id when missing
func (r *NatsRegistrationRepository) Create(ctx context.Context, record *models.RegistrationRecord) error {
	if record.EventUID == "" {
		return domain.NewValidationError("registration record needs an event uid")
	}
	if record.RecordID == "" {
		record.RecordID = models.NewRecordID()
	}
	_, err := r.NatsBaseRepository.Put(ctx, r.keyBuilder.RecordKeyEncoded(record.EventUID, record.RecordID), record)
	return err
}

// Delete removes one record. Deleting a missing record is not an error.
func (r *NatsRegistrationRepository) Delete(ctx context.Context, eventUID, recordID string) error {
	err := r.NatsBaseRepository.Delete(ctx, r.keyBuilder.RecordKeyEncoded(eventUID, recordID))
	if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		return nil
	}
	return err
}

// DeleteAllForEvent removes every record of the event
func (r *NatsRegistrationRepository) DeleteAllForEvent(ctx context.Context, eventUID string) (int, error) {
	return r.deleteWhere(ctx, eventUID, func(*models.RegistrationRecord) bool { return true })
}

// DeleteAllForParticipant removes every record of the participant with the
// given id or tag
func (r *NatsRegistrationRepository) DeleteAllForParticipant(ctx context.Context, eventUID, idOrTag string) (int, error) {
	return r.deleteWhere(ctx, eventUID, func(rec *models.RegistrationRecord) bool {
		return rec.MatchesKey(idOrTag)
	})
}

func (r *NatsRegistrationRepository) deleteWhere(ctx context.Context, eventUID string, match func(*models.RegistrationRecord) bool) (int, error) {
	found, err := r.list(ctx, eventUID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, f := range found {
		if !match(f.entity) {
			continue
		}
		if err := r.NatsBaseRepository.Delete(ctx, f.key); err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				continue
			}
			slog.ErrorContext(ctx, "error deleting registration record",
				"event_uid", eventUID, "record_id", f.entity.RecordID, logging.ErrKey, err)
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
