// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"slices"
	"time"

	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// RegistrationRecord is the durable record of one participant's signup to one
// event. InsertedAt defines priority: earlier records sit earlier in the roster.
type RegistrationRecord struct {
	RecordID       string    `json:"record_id" msgpack:"record_id"`
	EventUID       string    `json:"event_uid" msgpack:"event_uid"`
	ParticipantID  string    `json:"participant_id,omitempty" msgpack:"participant_id,omitempty"`
	ParticipantTag string    `json:"participant_tag" msgpack:"participant_tag"`
	InsertedAt     time.Time `json:"inserted_at" msgpack:"inserted_at"`
}

// NewRecordID returns a compact, random record id.
func NewRecordID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}

// NewRegistrationRecord builds a record for p on the given event.
func NewRegistrationRecord(eventUID string, p Participant, insertedAt time.Time) *RegistrationRecord {
	n := p.Normalize()
	return &RegistrationRecord{
		RecordID:       NewRecordID(),
		EventUID:       eventUID,
		ParticipantID:  n.ID,
		ParticipantTag: n.Tag,
		InsertedAt:     insertedAt,
	}
}

// Participant returns the participant the record belongs to.
func (r *RegistrationRecord) Participant() Participant {
	return Participant{ID: r.ParticipantID, Tag: NormalizeTag(r.ParticipantTag)}
}

// Matches reports whether the record belongs to p: ids when the record has one
// and p carries one, otherwise the exact normalized tag.
func (r *RegistrationRecord) Matches(p Participant) bool {
	if r.ParticipantID != "" && p.ID != "" && r.ParticipantID == p.ID {
		return true
	}
	tag := NormalizeTag(p.Tag)
	return tag != "" && NormalizeTag(r.ParticipantTag) == tag
}

// MatchesKey reports whether the record belongs to the participant with the
// given id or tag.
func (r *RegistrationRecord) MatchesKey(idOrTag string) bool {
	if idOrTag == "" {
		return false
	}
	return r.ParticipantID == idOrTag || NormalizeTag(r.ParticipantTag) == NormalizeTag(idOrTag)
}

// SortRecords orders records by InsertedAt, keeping the input order for ties.
func SortRecords(records []*RegistrationRecord) {
	slices.SortStableFunc(records, func(a, b *RegistrationRecord) int {
		return a.InsertedAt.Compare(b.InsertedAt)
	})
}

// RosterFromRecords projects ordered records into a roster.
func RosterFromRecords(records []*RegistrationRecord) []Participant {
	roster := make([]Participant, 0, len(records))
	for _, r := range records {
		roster = append(roster, r.Participant())
	}
	return roster
}
