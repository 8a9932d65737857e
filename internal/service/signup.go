// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

// hasStarted reports whether signup gating by start time applies and the
// event has already started.
func hasStarted(event *models.Event, now time.Time) bool {
	if event.AllowSignupsAfterStart || event.HideSchedule || event.StartsAt.IsZero() {
		return false
	}
	return !now.Before(event.StartsAt)
}

// SignUp registers a participant for an event. Business rejections are
// returned as a result, never as an error, and the participant is told the
// reason directly.
func (s *EventService) SignUp(ctx context.Context, eventUID string, participant models.Participant, timestamp *time.Time) (*models.SignupResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	if participant.Normalize().IsEmpty() {
		return nil, domain.NewValidationError("participant is required")
	}

	event, revision, err := s.EventRepository.GetWithRevision(ctx, eventUID)
	if err != nil {
		return nil, err
	}
	if event.Deleted {
		return nil, domain.ErrEventNotFound
	}
	ctx = eventContext(ctx, "sign_up", event)

	community, cfg, err := s.communityContext(ctx, event.CommunityID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return s.reject(ctx, event, cfg, participant, models.RejectCommunityNotFound, nil), nil
		}
		return nil, err
	}

	p, _ := participant.Resolve(community.Members)
	now := s.now()

	if hasStarted(event, now) {
		return s.reject(ctx, event, cfg, p, models.RejectAlreadyStarted, nil), nil
	}
	if event.DisableWaitlist && len(event.Roster) >= event.PlayerCap {
		return s.reject(ctx, event, cfg, p, models.RejectWaitlistDisabledFull, nil), nil
	}
	if tpl, ok := cfg.Template(event.TemplateID); ok && len(tpl.PlayerRoles) > 0 {
		member, found := community.Member(p)
		if !found || !member.HasAnyRole(tpl.PlayerRoles) {
			names := make([]string, 0, len(tpl.PlayerRoles))
			for _, r := range tpl.PlayerRoles {
				names = append(names, r.Name)
			}
			return s.reject(ctx, event, cfg, p, models.RejectMissingRole, names), nil
		}
	}

	existing, err := s.findRecord(ctx, event.UID, p)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if models.IndexOf(event.Roster, existing.Participant()) >= 0 {
			return s.reject(ctx, event, cfg, p, models.RejectAlreadySignedUp, nil), nil
		}
		slog.InfoContext(ctx, "removing stale registration record", "record_id", existing.RecordID)
		if err := s.RegistrationRepository.Delete(ctx, event.UID, existing.RecordID); err != nil {
			slog.ErrorContext(ctx, "error removing stale registration record", logging.ErrKey, err)
			return nil, err
		}
	}

	insertedAt := now
	if timestamp != nil && !timestamp.IsZero() {
		insertedAt = timestamp.UTC()
	}
	record := models.NewRegistrationRecord(event.UID, p, insertedAt)
	if err := s.RegistrationRepository.Create(ctx, record); err != nil {
		slog.ErrorContext(ctx, "error creating registration record", logging.ErrKey, err)
		return nil, err
	}

	previous := event.Clone()
	event.Roster = append(event.Roster, record.Participant())

	update, err := s.commit(ctx, event, previous, revision, community, cfg, false)
	if err != nil {
		if delErr := s.RegistrationRepository.Delete(ctx, event.UID, record.RecordID); delErr != nil {
			slog.ErrorContext(ctx, "error rolling back registration record", logging.ErrKey, delErr)
		}
		return nil, err
	}

	result := models.Accepted()
	if pos := models.IndexOf(update.Event.Roster, p); pos >= update.Event.PlayerCap {
		result.Waitlisted = true
		result.WaitlistPosition = pos - update.Event.PlayerCap + 1
	}

	if event.AutomatedSignups() && event.CustomInstructions != "" {
		s.sendCustomInstructions(ctx, update.Event, cfg, p)
	}

	slog.InfoContext(ctx, "participant signed up", "waitlisted", result.Waitlisted)

	return result, nil
}

// DropOut removes a participant from an event and deletes every record they
// hold for it.
func (s *EventService) DropOut(ctx context.Context, eventUID string, participant models.Participant) (*models.SignupResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	if participant.Normalize().IsEmpty() {
		return nil, domain.NewValidationError("participant is required")
	}

	event, revision, err := s.EventRepository.GetWithRevision(ctx, eventUID)
	if err != nil {
		return nil, err
	}
	ctx = eventContext(ctx, "drop_out", event)

	community, cfg, err := s.communityContext(ctx, event.CommunityID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return s.reject(ctx, event, cfg, participant, models.RejectCommunityNotFound, nil), nil
		}
		return nil, err
	}

	p, _ := participant.Resolve(community.Members)

	if !cfg.DropOuts {
		return s.reject(ctx, event, cfg, p, models.RejectDropOutsDisabled, nil), nil
	}
	if hasStarted(event, s.now()) {
		return s.reject(ctx, event, cfg, p, models.RejectAlreadyStarted, nil), nil
	}

	deleted := 0
	for _, key := range participantKeys(participant, p) {
		n, err := s.RegistrationRepository.DeleteAllForParticipant(ctx, event.UID, key)
		if err != nil {
			slog.ErrorContext(ctx, "error deleting registration records", logging.ErrKey, err)
			return nil, err
		}
		deleted += n
	}

	previous := event.Clone()
	roster := make([]models.Participant, 0, len(event.Roster))
	for _, r := range event.Roster {
		if r.Same(p) || r.Same(participant) {
			continue
		}
		roster = append(roster, r)
	}
	if deleted == 0 && len(roster) == len(event.Roster) {
		return s.reject(ctx, event, cfg, p, models.RejectNotSignedUp, nil), nil
	}
	event.Roster = roster

	if _, err := s.commit(ctx, event, previous, revision, community, cfg, false); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "participant dropped out", "records_deleted", deleted)

	return models.Accepted(), nil
}

// findRecord looks up the participant's record by id and then by tag.
func (s *EventService) findRecord(ctx context.Context, eventUID string, p models.Participant) (*models.RegistrationRecord, error) {
	for _, key := range participantKeys(p) {
		record, err := s.RegistrationRepository.FetchOne(ctx, eventUID, key)
		if err == nil {
			return record, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.ErrorContext(ctx, "error fetching registration record", logging.ErrKey, err)
			return nil, err
		}
	}
	return nil, nil
}

// participantKeys returns the distinct ids and tags the participants are
// known by.
func participantKeys(participants ...models.Participant) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, p := range participants {
		n := p.Normalize()
		for _, k := range []string{n.ID, n.Tag} {
			if k != "" && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func (s *EventService) reject(ctx context.Context, event *models.Event, cfg models.CommunityConfig, p models.Participant, reason models.RejectionReason, roles []string) *models.SignupResult {
	message := s.Localizer.Rejection(cfg.Lang, reason, roles)
	slog.InfoContext(ctx, "request rejected", "reason", string(reason))
	s.sendDM(ctx, p, models.DirectMessage{
		Kind:        models.DMRejection,
		CommunityID: event.CommunityID,
		EventUID:    event.UID,
		Title:       event.Title,
		Text:        message,
	})
	return models.Rejected(reason, message)
}

func (s *EventService) sendCustomInstructions(ctx context.Context, event *models.Event, cfg models.CommunityConfig, p models.Participant) {
	text := event.CustomInstructions
	if pos := models.IndexOf(event.Roster, p); pos >= event.PlayerCap {
		text += "\n\n" + s.Localizer.Text(cfg.Lang, "waitlist_position", pos-event.PlayerCap+1)
	}
	s.sendDM(ctx, p, models.DirectMessage{
		Kind:        models.DMCustomInstructions,
		CommunityID: event.CommunityID,
		EventUID:    event.UID,
		Title:       event.Title,
		Text:        text,
	})
}
