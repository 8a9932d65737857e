// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

// BackfillStagger separates the InsertedAt of records created in one
// reconciliation pass so their order is deterministic.
const BackfillStagger = 100 * time.Millisecond

// ReconcileInput is the immutable snapshot a reconciliation is planned over.
type ReconcileInput struct {
	EventUID string
	// Roster is the intended roster, possibly edited by the caller.
	Roster []models.Participant
	// Previous is the roster as last stored. Participants present here and
	// missing from Roster have their records removed.
	Previous []models.Participant
	// Records are the event's durable records ordered by InsertedAt.
	Records   []*models.RegistrationRecord
	Members   []models.Member
	Reference time.Time
}

// ReconcilePlan is the outcome of a reconciliation: the corrected roster and
// the record writes needed to make the store agree with it.
type ReconcilePlan struct {
	Roster  []models.Participant
	Created []*models.RegistrationRecord
	Deleted []*models.RegistrationRecord
}

// IsNoop reports whether applying the plan writes nothing.
func (p ReconcilePlan) IsNoop() bool {
	return len(p.Created) == 0 && len(p.Deleted) == 0
}

type rosterEntry struct {
	participant models.Participant
	record      *models.RegistrationRecord
}

// DedupRoster removes duplicate participants. An identified participant is
// kept at the first index carrying its id. A participant known only by a
// qualified tag is kept at the first index carrying that exact tag. Entries
// known only by an unqualified tag are always kept.
func DedupRoster(roster []models.Participant) []models.Participant {
	out := make([]models.Participant, 0, len(roster))
	for _, i := range keptIndices(roster) {
		out = append(out, roster[i])
	}
	return out
}

func keptIndices(roster []models.Participant) []int {
	kept := make([]int, 0, len(roster))
	for i, p := range roster {
		if !p.IsIdentified() && !p.Qualified() {
			kept = append(kept, i)
			continue
		}
		first := slices.IndexFunc(roster, func(other models.Participant) bool {
			if p.IsIdentified() && other.ID == p.ID {
				return true
			}
			return p.Qualified() && other.Tag == p.Tag
		})
		if first == i {
			kept = append(kept, i)
		}
	}
	return kept
}

func dedupEntries(entries []rosterEntry) []rosterEntry {
	roster := make([]models.Participant, len(entries))
	for i, e := range entries {
		roster[i] = e.participant
	}
	out := make([]rosterEntry, 0, len(entries))
	for _, i := range keptIndices(roster) {
		out = append(out, entries[i])
	}
	return out
}

// resolveRecord picks the record backing entry: a record with the entry's id
// first, then an exact tag match on a record carrying no conflicting id.
// Unassigned records are preferred within each tier. It also returns how
// many records may back the entry.
func resolveRecord(records []*models.RegistrationRecord, assigned map[string]bool, entry models.Participant) (*models.RegistrationRecord, int) {
	byID := func(r *models.RegistrationRecord) bool {
		return entry.ID != "" && r.ParticipantID == entry.ID
	}
	byTag := func(r *models.RegistrationRecord) bool {
		return (entry.ID == "" || r.ParticipantID == "") && r.ParticipantTag == entry.Tag
	}

	count := 0
	for _, r := range records {
		if byID(r) || byTag(r) {
			count++
		}
	}
	for _, tier := range []func(*models.RegistrationRecord) bool{byID, byTag} {
		var first *models.RegistrationRecord
		for _, r := range records {
			if !tier(r) {
				continue
			}
			if !assigned[r.RecordID] {
				return r, count
			}
			if first == nil {
				first = r
			}
		}
		if first != nil {
			return first, count
		}
	}
	return nil, count
}

// sameEntry reports whether prior counts as the same participant as entry
// when deciding how many records entry needs.
func sameEntry(prior, entry models.Participant) bool {
	if prior.ID != "" && entry.ID != "" {
		return prior.ID == entry.ID
	}
	return !entry.Qualified() && prior.Tag == entry.Tag
}

// PlanReconciliation corrects the roster against the durable records. It is
// pure: the returned plan lists the records to create and delete.
func PlanReconciliation(in ReconcileInput) ReconcilePlan {
	work := make([]models.Participant, 0, len(in.Roster))
	for _, p := range in.Roster {
		n := p.Normalize()
		if n.IsEmpty() {
			continue
		}
		work = append(work, n)
	}
	work = DedupRoster(work)

	records := slices.Clone(in.Records)
	assigned := make(map[string]bool, len(records))
	entries := make([]rosterEntry, len(work))
	var plan ReconcilePlan

	for i := range work {
		entry := work[i]
		qualified := entry.Qualified()

		countMatches := 0
		for _, prior := range work[:i+1] {
			if sameEntry(prior, entry) {
				countMatches++
			}
		}

		found, recordMatchCount := resolveRecord(records, assigned, entry)

		if found == nil || (!qualified && countMatches > recordMatchCount) {
			canonical, known := entry.Resolve(in.Members)
			if !known && found != nil && canonical.ID == "" {
				canonical.ID = found.ParticipantID
			}
			found = models.NewRegistrationRecord(in.EventUID, canonical, in.Reference.Add(time.Duration(i)*BackfillStagger))
			records = append(records, found)
			plan.Created = append(plan.Created, found)
		}

		assigned[found.RecordID] = true
		work[i] = found.Participant()
		entries[i] = rosterEntry{participant: work[i], record: found}
	}

	entries = dedupEntries(entries)
	slices.SortStableFunc(entries, func(a, b rosterEntry) int {
		return a.record.InsertedAt.Compare(b.record.InsertedAt)
	})

	referenced := make(map[string]bool, len(entries))
	plan.Roster = make([]models.Participant, 0, len(entries))
	for _, e := range entries {
		referenced[e.record.RecordID] = true
		plan.Roster = append(plan.Roster, e.participant)
	}

	created := make(map[string]bool, len(plan.Created))
	for _, r := range plan.Created {
		created[r.RecordID] = true
	}
	for i, r := range records {
		switch {
		case referenced[r.RecordID]:
		case created[r.RecordID]:
			plan.Created = slices.DeleteFunc(plan.Created, func(c *models.RegistrationRecord) bool {
				return c.RecordID == r.RecordID
			})
		case isDuplicateRecord(records[:i], r) || wasRemoved(in.Previous, r):
			plan.Deleted = append(plan.Deleted, r)
		}
	}

	return plan
}

// isDuplicateRecord reports whether an earlier record already holds the same
// identified participant or the same qualified tag.
func isDuplicateRecord(earlier []*models.RegistrationRecord, r *models.RegistrationRecord) bool {
	for _, e := range earlier {
		if r.ParticipantID != "" && e.ParticipantID == r.ParticipantID {
			return true
		}
		if r.ParticipantID == "" && models.IsQualifiedTag(r.ParticipantTag) && e.ParticipantTag == r.ParticipantTag {
			return true
		}
	}
	return false
}

func wasRemoved(previous []models.Participant, r *models.RegistrationRecord) bool {
	for _, p := range previous {
		if r.Participant().Same(p.Normalize()) {
			return true
		}
	}
	return false
}

// Partition splits a roster into the reserved slots and the waitlist.
func Partition(roster []models.Participant, playerCap int, disableWaitlist bool) (reserved, waitlist []models.Participant) {
	if playerCap < 0 {
		playerCap = 0
	}
	n := min(len(roster), playerCap)
	reserved = slices.Clone(roster[:n])
	if disableWaitlist {
		return reserved, []models.Participant{}
	}
	return reserved, slices.Clone(roster[n:])
}

// DetectPromotion returns the participant newly moved into the last reserved
// slot when the roster shrank and the slot changed hands. A promotion can only
// follow a departure, so it fires when previous is the longer roster.
func DetectPromotion(previous, current []models.Participant, playerCap int) (models.Participant, bool) {
	if playerCap < 1 || len(previous) <= len(current) || len(current) < playerCap {
		return models.Participant{}, false
	}
	before, after := previous[playerCap-1], current[playerCap-1]
	if NormalizeBoundary(before) == NormalizeBoundary(after) {
		return models.Participant{}, false
	}
	return after, true
}

// NormalizeBoundary is the identity of a boundary occupant used to compare
// rosters across reconciliations.
func NormalizeBoundary(p models.Participant) string {
	n := p.Normalize()
	if n.ID != "" {
		return "id:" + n.ID
	}
	return "tag:" + n.Tag
}

// RosterReconciler applies reconciliation plans through the registration store.
type RosterReconciler struct {
	RegistrationRepository domain.RegistrationRepository
}

// NewRosterReconciler creates a RosterReconciler.
func NewRosterReconciler(registrationRepository domain.RegistrationRepository) *RosterReconciler {
	return &RosterReconciler{RegistrationRepository: registrationRepository}
}

// Reconcile loads the event's records, plans the reconciliation and applies
// it. Individual record writes that fail are logged and skipped; a later pass
// repairs them.
func (r *RosterReconciler) Reconcile(ctx context.Context, event *models.Event, previous []models.Participant, members []models.Member, now time.Time) (ReconcilePlan, error) {
	records, err := r.RegistrationRepository.ListByEvent(ctx, event.UID)
	if err != nil {
		slog.ErrorContext(ctx, "error listing registration records", logging.ErrKey, err)
		return ReconcilePlan{}, err
	}

	plan := PlanReconciliation(ReconcileInput{
		EventUID:  event.UID,
		Roster:    event.Roster,
		Previous:  previous,
		Records:   records,
		Members:   members,
		Reference: now.Add(-BackfillStagger * time.Duration(len(event.Roster))),
	})

	for _, rec := range plan.Created {
		if err := r.RegistrationRepository.Create(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "error creating registration record", "record_id", rec.RecordID, logging.ErrKey, err)
		}
	}
	for _, rec := range plan.Deleted {
		if err := r.RegistrationRepository.Delete(ctx, event.UID, rec.RecordID); err != nil {
			slog.WarnContext(ctx, "error deleting registration record", "record_id", rec.RecordID, logging.ErrKey, err)
		}
	}

	if !plan.IsNoop() {
		slog.DebugContext(ctx, "reconciled roster",
			"created", len(plan.Created),
			"deleted", len(plan.Deleted),
			"roster_size", len(plan.Roster),
		)
	}

	event.Roster = plan.Roster
	return plan, nil
}
