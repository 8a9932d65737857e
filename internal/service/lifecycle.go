// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/utils"
)

// UpdateOptions alter how an update is applied.
type UpdateOptions struct {
	// Undelete forces the event back to not deleted and posts a fresh
	// announcement.
	Undelete bool
}

// UpdateResult reports the outcome of an update.
type UpdateResult struct {
	Event *models.Event
	// Modified is false when the stored event changed but the announcement
	// could not be brought up to date.
	Modified bool
	Changes  map[string]any
	Promoted *models.Participant
}

// diffIgnored lists fields that change on every save and are never reported.
var diffIgnored = map[string]bool{"sequence": true, "updated_at": true}

// CreateEvent validates and stores a new event, reconciles its initial roster
// into registration records and posts its announcement. Creation is all or
// nothing: when the announcement cannot be posted the event is removed again.
func (s *EventService) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	if event == nil {
		return nil, domain.ErrValidationFailed
	}

	event = event.Clone()
	event.UID = uuid.NewString()
	ctx = eventContext(ctx, "create_event", event)

	if err := s.validation().StructCtx(ctx, event); err != nil {
		slog.WarnContext(ctx, "invalid event payload", logging.ErrKey, err)
		return nil, domain.NewValidationError("invalid event payload", err)
	}

	community, cfg, err := s.communityContext(ctx, event.CommunityID)
	if err != nil {
		return nil, err
	}
	if err := resolveChannel(event, community, cfg); err != nil {
		return nil, err
	}

	if owner, ok := community.Member(event.Owner); ok && !event.Owner.IsEmpty() {
		event.Owner = owner.Participant()
	} else {
		author, _ := event.Author.Resolve(community.Members)
		event.Owner = author
	}

	now := s.now()
	event.Sequence = 1
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Deleted = false
	event.Rescheduled = false
	if !event.Frequency.Repeats() {
		event.Frequency = models.FrequencyNone
	}
	if err := deriveSchedule(event, now); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	if _, err := s.Reconciler.Reconcile(ctx, event, nil, community.Members, now); err != nil {
		return nil, domain.NewInternalError("error reconciling roster", err)
	}

	if err := s.EventRepository.Upsert(ctx, event); err != nil {
		slog.ErrorContext(ctx, "error storing event", logging.ErrKey, err)
		if _, purgeErr := s.RegistrationRepository.DeleteAllForEvent(ctx, event.UID); purgeErr != nil {
			slog.ErrorContext(ctx, "error removing records of unsaved event", logging.ErrKey, purgeErr)
		}
		return nil, err
	}

	ref, err := s.AnnouncementSink.Post(ctx, event.ChannelID, announcement(event, cfg))
	if err != nil || ref == "" {
		slog.ErrorContext(ctx, "error posting announcement, rolling back event", logging.ErrKey, err)
		if _, delErr := s.HardDeleteEvent(ctx, event.UID); delErr != nil {
			slog.ErrorContext(ctx, "error rolling back event", logging.ErrKey, delErr, logging.PriorityCritical())
		}
		return nil, domain.NewInternalError("announcement could not be posted", domain.ErrAnnouncementFailed, err)
	}

	event.AnnouncementRef = ref
	if _, err := s.EventRepository.UpdateFields(ctx, event.UID, models.EventPatch{AnnouncementRef: utils.Ptr(ref)}); err != nil {
		slog.WarnContext(ctx, "error storing announcement reference", logging.ErrKey, err)
	}

	s.addReactions(ctx, event, cfg)

	if event.AutomatedSignups() && event.CustomInstructions != "" {
		for _, p := range event.Roster {
			s.sendCustomInstructions(ctx, event, cfg, p)
		}
	}

	if s.Config.EditLinkBaseURL != "" {
		s.sendDM(ctx, event.Owner, models.DirectMessage{
			Kind:        models.DMEditLink,
			CommunityID: event.CommunityID,
			EventUID:    event.UID,
			Title:       event.Title,
			Text:        strings.TrimSuffix(s.Config.EditLinkBaseURL, "/") + "/" + event.UID,
		})
	}

	s.publish(ctx, models.Notification{
		Action:      models.ActionNew,
		EventUID:    event.UID,
		CommunityID: event.CommunityID,
		AuthorID:    event.Author.ID,
	})

	slog.InfoContext(ctx, "created event", "channel_id", event.ChannelID, "roster_size", len(event.Roster))

	return event, nil
}

// UpdateEvent replaces the editable fields of a stored event, reconciles its
// roster, brings its announcement up to date and publishes the visible
// changes.
func (s *EventService) UpdateEvent(ctx context.Context, event *models.Event, opts UpdateOptions) (*UpdateResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	if event == nil || event.UID == "" {
		return nil, domain.ErrValidationFailed
	}
	ctx = eventContext(ctx, "update_event", event)

	if err := s.validation().StructCtx(ctx, event); err != nil {
		slog.WarnContext(ctx, "invalid event payload", logging.ErrKey, err)
		return nil, domain.NewValidationError("invalid event payload", err)
	}

	previous, revision, err := s.EventRepository.GetWithRevision(ctx, event.UID)
	if err != nil {
		return nil, err
	}

	community, cfg, err := s.communityContext(ctx, previous.CommunityID)
	if err != nil {
		return nil, err
	}

	updated := event.Clone()
	updated.CommunityID = previous.CommunityID
	updated.Author = previous.Author
	updated.CreatedAt = previous.CreatedAt
	updated.AnnouncementRef = previous.AnnouncementRef
	// Retirement and reminder bookkeeping is owned by the service.
	updated.Rescheduled = previous.Rescheduled
	updated.Reminded = previous.Reminded
	updated.ReminderMessageRef = previous.ReminderMessageRef
	updated.OrganizerDMRef = previous.OrganizerDMRef
	updated.Deleted = previous.Deleted && !opts.Undelete

	return s.commit(ctx, updated, previous, revision, community, cfg, opts.Undelete)
}

// UndeleteEvent restores a soft deleted event and announces it again.
func (s *EventService) UndeleteEvent(ctx context.Context, eventUID string) (*UpdateResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	event, err := s.EventRepository.Get(ctx, eventUID)
	if err != nil {
		return nil, err
	}
	return s.UpdateEvent(ctx, event, UpdateOptions{Undelete: true})
}

// GetRoster returns the reserved and waitlisted participants of an event.
func (s *EventService) GetRoster(ctx context.Context, eventUID string) (*models.RosterResponse, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}
	event, err := s.EventRepository.Get(ctx, eventUID)
	if err != nil {
		return nil, err
	}
	reserved, waitlist := Partition(event.Roster, event.PlayerCap, event.DisableWaitlist)
	return &models.RosterResponse{
		EventUID:  event.UID,
		PlayerCap: event.PlayerCap,
		Reserved:  reserved,
		Waitlist:  waitlist,
	}, nil
}

// commit runs the shared update pipeline: resolve the channel, bump the
// sequence, reconcile the roster, derive schedule fields, store with a
// revision check, refresh the announcement, notify a promoted participant and
// publish the visible changes.
func (s *EventService) commit(
	ctx context.Context,
	event, previous *models.Event,
	revision uint64,
	community *models.Community,
	cfg models.CommunityConfig,
	repost bool,
) (*UpdateResult, error) {
	if err := resolveChannel(event, community, cfg); err != nil {
		return nil, err
	}

	now := s.now()
	event.Sequence = previous.Sequence + 1
	event.UpdatedAt = now

	if _, err := s.Reconciler.Reconcile(ctx, event, previous.Roster, community.Members, now); err != nil {
		event.Sequence = previous.Sequence
		return nil, domain.NewInternalError("error reconciling roster", err)
	}
	if err := deriveSchedule(event, now); err != nil {
		event.Sequence = previous.Sequence
		return nil, domain.NewValidationError(err.Error())
	}
	if event.Deleted {
		event.Frequency = models.FrequencyNone
	}

	if err := s.store(ctx, event, revision); err != nil {
		event.Sequence = previous.Sequence
		return nil, err
	}

	result := &UpdateResult{Event: event, Modified: true}
	s.refreshAnnouncement(ctx, event, cfg, repost, result)

	if promoted, ok := DetectPromotion(previous.Roster, event.Roster, event.PlayerCap); ok {
		result.Promoted = &promoted
		s.sendDM(ctx, promoted, models.DirectMessage{
			Kind:        models.DMPromoted,
			CommunityID: event.CommunityID,
			EventUID:    event.UID,
			Title:       event.Title,
			Text:        s.Localizer.Text(cfg.Lang, "promoted", event.Title),
		})
	}

	result.Changes = diffEvents(previous, event)
	if len(result.Changes) > 0 {
		s.publish(ctx, models.Notification{
			Action:      models.ActionUpdated,
			EventUID:    event.UID,
			CommunityID: event.CommunityID,
			Changes:     result.Changes,
		})
	}

	return result, nil
}

func (s *EventService) store(ctx context.Context, event *models.Event, revision uint64) error {
	var err error
	if s.Config.SkipRevisionCheck {
		err = s.EventRepository.Upsert(ctx, event)
	} else {
		err = s.EventRepository.Update(ctx, event, revision)
	}
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.WarnContext(ctx, "event changed concurrently", logging.ErrKey, err)
		} else {
			slog.ErrorContext(ctx, "error storing event", logging.ErrKey, err)
		}
	}
	return err
}

// refreshAnnouncement edits the posted announcement, or posts a new one when
// none exists or a repost is requested. A failure leaves the result
// unmodified instead of failing the update.
func (s *EventService) refreshAnnouncement(ctx context.Context, event *models.Event, cfg models.CommunityConfig, repost bool, result *UpdateResult) {
	if event.Deleted {
		return
	}
	content := announcement(event, cfg)

	var (
		ref string
		err error
	)
	if repost || event.AnnouncementRef == "" {
		ref, err = s.AnnouncementSink.Post(ctx, event.ChannelID, content)
	} else {
		ref, err = s.AnnouncementSink.Edit(ctx, event.ChannelID, event.AnnouncementRef, content)
	}
	if err != nil {
		slog.WarnContext(ctx, "error refreshing announcement", logging.ErrKey, err)
		result.Modified = false
		return
	}

	if ref == "" || ref == event.AnnouncementRef {
		return
	}
	event.AnnouncementRef = ref
	if _, err := s.EventRepository.UpdateFields(ctx, event.UID, models.EventPatch{AnnouncementRef: utils.Ptr(ref)}); err != nil {
		slog.WarnContext(ctx, "error storing announcement reference", logging.ErrKey, err)
	}
	if repost {
		s.addReactions(ctx, event, cfg)
	}
}

func (s *EventService) addReactions(ctx context.Context, event *models.Event, cfg models.CommunityConfig) {
	if !event.AutomatedSignups() || event.AnnouncementRef == "" {
		return
	}
	symbols := []string{cfg.ReactionSignUp}
	if cfg.DropOuts {
		symbols = append(symbols, cfg.ReactionDropOut)
	}
	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}
		if err := s.AnnouncementSink.React(ctx, event.ChannelID, event.AnnouncementRef, symbol); err != nil {
			slog.WarnContext(ctx, "error adding reaction", "symbol", symbol, logging.ErrKey, err)
		}
	}
}

// diffEvents returns the externally visible fields whose value changed,
// keyed by their JSON name, with the new value.
func diffEvents(previous, current *models.Event) map[string]any {
	before, errBefore := eventFields(previous)
	after, errAfter := eventFields(current)
	if err := errors.Join(errBefore, errAfter); err != nil {
		slog.Warn("error diffing events", logging.ErrKey, err)
		return nil
	}

	changes := make(map[string]any)
	for key, value := range after {
		if diffIgnored[key] {
			continue
		}
		if !reflect.DeepEqual(before[key], value) {
			changes[key] = value
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok && !diffIgnored[key] {
			changes[key] = nil
		}
	}
	return changes
}

func eventFields(event *models.Event) (map[string]any, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
