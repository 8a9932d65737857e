// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func seedRecords(t *testing.T, repo *NatsRegistrationRepository, eventUID string, base time.Time, people ...models.Participant) []*models.RegistrationRecord {
	t.Helper()
	out := make([]*models.RegistrationRecord, 0, len(people))
	// Insert newest first so ordering comes from InsertedAt, not key order.
	for i := len(people) - 1; i >= 0; i-- {
		rec := models.NewRegistrationRecord(eventUID, people[i], base.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.Create(context.Background(), rec))
		out = append([]*models.RegistrationRecord{rec}, out...)
	}
	return out
}

func TestNatsRegistrationRepository_Create(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsRegistrationRepository(kv)

	rec := &models.RegistrationRecord{
		EventUID:       "e1",
		ParticipantID:  "u1",
		ParticipantTag: "alice#0001",
		InsertedAt:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, rec))
	assert.NotEmpty(t, rec.RecordID)

	raw, ok := kv.data[NewKeyBuilder("").RecordKeyEncoded("e1", rec.RecordID)]
	require.True(t, ok)
	var stored models.RegistrationRecord
	require.NoError(t, msgpack.Unmarshal(raw, &stored))
	assert.Equal(t, rec.RecordID, stored.RecordID)
	assert.Equal(t, "alice#0001", stored.ParticipantTag)
	assert.True(t, rec.InsertedAt.Equal(stored.InsertedAt))

	err := repo.Create(ctx, &models.RegistrationRecord{ParticipantTag: "bob"})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestNatsRegistrationRepository_ListByEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsRegistrationRepository(newMockNatsKeyValue())
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	seeded := seedRecords(t, repo, "e1", base,
		models.Participant{ID: "u1", Tag: "alice#0001"},
		models.Participant{ID: "u2", Tag: "bob#0002"},
		models.Participant{Tag: "carol"},
	)
	seedRecords(t, repo, "e2", base, models.Participant{ID: "u9", Tag: "zed#0009"})

	records, err := repo.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, seeded[i].RecordID, rec.RecordID)
		assert.True(t, seeded[i].InsertedAt.Equal(rec.InsertedAt))
	}

	none, err := repo.ListByEvent(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNatsRegistrationRepository_FetchOne(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsRegistrationRepository(newMockNatsKeyValue())
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	seeded := seedRecords(t, repo, "e1", base,
		models.Participant{ID: "u1", Tag: "alice#0001"},
		models.Participant{Tag: "carol"},
	)

	rec, err := repo.FetchOne(ctx, "e1", "u1")
	require.NoError(t, err)
	assert.Equal(t, seeded[0].RecordID, rec.RecordID)

	rec, err = repo.FetchOne(ctx, "e1", "@carol")
	require.NoError(t, err)
	assert.Equal(t, seeded[1].RecordID, rec.RecordID)

	_, err = repo.FetchOne(ctx, "e1", "dave")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsRegistrationRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsRegistrationRepository(newMockNatsKeyValue())
	seeded := seedRecords(t, repo, "e1", time.Now(), models.Participant{ID: "u1", Tag: "alice#0001"})

	require.NoError(t, repo.Delete(ctx, "e1", seeded[0].RecordID))
	require.NoError(t, repo.Delete(ctx, "e1", seeded[0].RecordID))

	records, err := repo.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNatsRegistrationRepository_DeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsRegistrationRepository(newMockNatsKeyValue())
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	seedRecords(t, repo, "e1", base,
		models.Participant{ID: "u1", Tag: "alice#0001"},
		models.Participant{ID: "u2", Tag: "bob#0002"},
		models.Participant{ID: "u1", Tag: "alice#0001"},
	)
	seedRecords(t, repo, "e2", base, models.Participant{ID: "u1", Tag: "alice#0001"})

	n, err := repo.DeleteAllForParticipant(ctx, "e1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := repo.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u2", records[0].ParticipantID)

	n, err = repo.DeleteAllForEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteAllForEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Zero(t, n)

	others, err := repo.ListByEvent(ctx, "e2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestNatsRegistrationRepository_NotReady(t *testing.T) {
	repo := NewNatsRegistrationRepository(nil)
	assert.False(t, repo.IsReady(context.Background()))

	_, err := repo.ListByEvent(context.Background(), "e1")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}
