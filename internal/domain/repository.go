// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

// EventRepository defines the interface for event storage operations.
// Mutating calls report how many events they changed; they never write partially.
type EventRepository interface {
	Get(ctx context.Context, eventUID string) (*models.Event, error)
	GetWithRevision(ctx context.Context, eventUID string) (*models.Event, uint64, error)
	// Upsert stores the event whether or not it already exists.
	Upsert(ctx context.Context, event *models.Event) error
	// Update stores the event only if its stored revision still matches.
	Update(ctx context.Context, event *models.Event, revision uint64) error
	UpdateFields(ctx context.Context, eventUID string, patch models.EventPatch) (int, error)
	// SoftDelete marks the event deleted and cancels its recurrence.
	SoftDelete(ctx context.Context, eventUID string) (int, error)
	HardDelete(ctx context.Context, eventUID string) (int, error)
	FindMany(ctx context.Context, filter models.EventFilter, limit int) ([]*models.Event, error)
	UpdateMany(ctx context.Context, filter models.EventFilter, patch models.EventPatch) (int, error)
	IsReady(ctx context.Context) bool
}

// RegistrationRepository defines the interface for Registration Record storage.
// This interface can be implemented by different storage backends (NATS, PostgreSQL).
type RegistrationRepository interface {
	// ListByEvent returns the event's records ordered by InsertedAt.
	ListByEvent(ctx context.Context, eventUID string) ([]*models.RegistrationRecord, error)
	// FetchOne returns the earliest record matching the participant id or tag.
	FetchOne(ctx context.Context, eventUID, idOrTag string) (*models.RegistrationRecord, error)
	Create(ctx context.Context, record *models.RegistrationRecord) error
	Delete(ctx context.Context, eventUID, recordID string) error
	DeleteAllForEvent(ctx context.Context, eventUID string) (int, error)
	DeleteAllForParticipant(ctx context.Context, eventUID, idOrTag string) (int, error)
	IsReady(ctx context.Context) bool
}
