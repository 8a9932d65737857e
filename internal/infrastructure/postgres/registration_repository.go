// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

const recordColumns = `record_id, event_uid, participant_id, participant_tag, inserted_at`

// RegistrationRepository stores registration records in PostgreSQL.
type RegistrationRepository struct {
	db *DB
}

var _ domain.RegistrationRepository = (*RegistrationRepository)(nil)

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// IsReady pings the database.
func (r *RegistrationRepository) IsReady(ctx context.Context) bool {
	if r.db == nil || r.db.pool == nil {
		return false
	}
	return r.db.pool.Ping(ctx) == nil
}

func scanRecord(row pgx.Row) (*models.RegistrationRecord, error) {
	var rec models.RegistrationRecord
	if err := row.Scan(&rec.RecordID, &rec.EventUID, &rec.ParticipantID, &rec.ParticipantTag, &rec.InsertedAt); err != nil {
		return nil, err
	}
	rec.InsertedAt = rec.InsertedAt.UTC()
	return &rec, nil
}

// ListByEvent returns the event's records ordered by InsertedAt, then by
// insertion order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventUID string) ([]*models.RegistrationRecord, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM registration_records
		 WHERE event_uid = $1
		 ORDER BY inserted_at, seq`,
		eventUID,
	)
	if err != nil {
		return nil, domain.NewInternalError("failed to query registration records", err)
	}
	defer rows.Close()

	var records []*models.RegistrationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.NewInternalError("failed to scan registration record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInternalError("error iterating registration records", err)
	}
	return records, nil
}

// FetchOne returns the earliest record of the participant with the given id
// or tag.
func (r *RegistrationRepository) FetchOne(ctx context.Context, eventUID, idOrTag string) (*models.RegistrationRecord, error) {
	if idOrTag == "" {
		return nil, domain.NewNotFoundError("no registration record for an empty key")
	}
	rec, err := scanRecord(r.db.pool.QueryRow(ctx,
		`SELECT `+recordColumns+`
		 FROM registration_records
		 WHERE event_uid = $1 AND (participant_id = $2 OR participant_tag = $3)
		 ORDER BY inserted_at, seq
		 LIMIT 1`,
		eventUID, idOrTag, models.NormalizeTag(idOrTag),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(fmt.Sprintf("no registration record for '%s'", idOrTag))
		}
		return nil, domain.NewInternalError("failed to fetch registration record", err)
	}
	return rec, nil
}

// Create inserts a new record, assigning its id when missing.
func (r *RegistrationRepository) Create(ctx context.Context, record *models.RegistrationRecord) error {
	if record.EventUID == "" {
		return domain.NewValidationError("registration record needs an event uid")
	}
	if record.RecordID == "" {
		record.RecordID = models.NewRecordID()
	}
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO registration_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5)`,
		record.RecordID, record.EventUID, record.ParticipantID,
		models.NormalizeTag(record.ParticipantTag), record.InsertedAt.UTC(),
	)
	if err != nil {
		slog.ErrorContext(ctx, "error inserting registration record",
			"event_uid", record.EventUID, logging.ErrKey, err)
		return domain.NewInternalError("failed to insert registration record", err)
	}
	return nil
}

// Delete removes one record. Deleting a missing record is not an error.
func (r *RegistrationRepository) Delete(ctx context.Context, eventUID, recordID string) error {
	_, err := r.db.pool.Exec(ctx,
		`DELETE FROM registration_records WHERE event_uid = $1 AND record_id = $2`,
		eventUID, recordID,
	)
	if err != nil {
		return domain.NewInternalError("failed to delete registration record", err)
	}
	return nil
}

// DeleteAllForEvent removes every record of the event.
func (r *RegistrationRepository) DeleteAllForEvent(ctx context.Context, eventUID string) (int, error) {
	tag, err := r.db.pool.Exec(ctx,
		`DELETE FROM registration_records WHERE event_uid = $1`,
		eventUID,
	)
	if err != nil {
		return 0, domain.NewInternalError("failed to delete registration records", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteAllForParticipant removes every record of the participant with the
// given id or tag.
func (r *RegistrationRepository) DeleteAllForParticipant(ctx context.Context, eventUID, idOrTag string) (int, error) {
	if idOrTag == "" {
		return 0, nil
	}
	tag, err := r.db.pool.Exec(ctx,
		`DELETE FROM registration_records
		 WHERE event_uid = $1 AND (participant_id = $2 OR participant_tag = $3)`,
		eventUID, idOrTag, models.NormalizeTag(idOrTag),
	)
	if err != nil {
		return 0, domain.NewInternalError("failed to delete registration records", err)
	}
	return int(tag.RowsAffected()), nil
}
