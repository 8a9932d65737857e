// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/utils"
)

// RetirementOutcome names how a reposted event's original was retired.
type RetirementOutcome string

const (
	RetiredSoftDeleted RetirementOutcome = "soft_deleted"
	RetiredHardDeleted RetirementOutcome = "hard_deleted"
	RetiredFlagged     RetirementOutcome = "flagged"
	RetirementFailed   RetirementOutcome = "failed"
)

// RetirementStep is one attempt at retiring an event. It succeeds when it
// modifies at least one event without error.
type RetirementStep struct {
	Outcome RetirementOutcome
	Run     func(ctx context.Context) (int, error)
}

// RunRetirement tries each step in order and returns the outcome of the
// first one that succeeds, or RetirementFailed.
func RunRetirement(ctx context.Context, steps ...RetirementStep) RetirementOutcome {
	for _, step := range steps {
		n, err := step.Run(ctx)
		if err == nil && n > 0 {
			return step.Outcome
		}
		slog.WarnContext(ctx, "retirement step did not apply",
			"step", string(step.Outcome),
			"modified", n,
			logging.ErrKey, err,
		)
	}
	return RetirementFailed
}

// RescheduleResult reports the outcome of a reschedule.
type RescheduleResult struct {
	Rescheduled bool
	EventUID    string
	// NewEventUID is set when the event was reposted as a successor.
	NewEventUID string
	Retirement  RetirementOutcome
}

// CanReschedule reports whether the event is due to move to its next
// occurrence: it has ended, it was not rescheduled already, it has a fixed
// schedule, its recurrence is usable, and the next occurrence is still ahead.
func CanReschedule(event *models.Event, now time.Time) bool {
	if event == nil || event.Rescheduled || event.Deleted || event.WhenMode != models.WhenDateTime {
		return false
	}
	switch event.Frequency {
	case models.FrequencyDaily, models.FrequencyMonthly:
	case models.FrequencyWeekly, models.FrequencyBiweekly:
		if len(event.Weekdays) == 0 {
			return false
		}
	default:
		return false
	}
	if !event.EndsAt().Before(now) {
		return false
	}
	next, ok := NextOccurrenceFor(event)
	if !ok {
		return false
	}
	nextStart, err := startsAtOn(event, FormatDate(next))
	if err != nil {
		return false
	}
	return nextStart.After(now)
}

// RescheduleEvent moves a recurring event to its next occurrence, either in
// place or by reposting a successor and retiring the original, depending on
// the community's reschedule mode.
func (s *EventService) RescheduleEvent(ctx context.Context, eventUID string) (*RescheduleResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.ErrServiceUnavailable
	}

	event, revision, err := s.EventRepository.GetWithRevision(ctx, eventUID)
	if err != nil {
		return nil, err
	}
	ctx = eventContext(ctx, "reschedule_event", event)
	result := &RescheduleResult{EventUID: event.UID}

	if !CanReschedule(event, s.now()) {
		slog.DebugContext(ctx, "event is not due for rescheduling")
		return result, nil
	}

	community, cfg, err := s.communityContext(ctx, event.CommunityID)
	if err != nil {
		return nil, err
	}

	next, ok := NextOccurrenceFor(event)
	if !ok {
		return result, nil
	}

	allowed, err := s.CommunityResolver.HasPostingPermission(ctx, event.CommunityID, event.ChannelID, event.Owner)
	if err != nil {
		slog.WarnContext(ctx, "error checking posting permission, proceeding", logging.ErrKey, err)
		allowed = true
	}
	if !allowed {
		return s.cancelRecurrence(ctx, event, cfg)
	}

	date := FormatDate(next)
	if cfg.Mode() == models.RescheduleRepost {
		return s.repost(ctx, event, date, result)
	}

	updated := event.Clone()
	updated.Date = date
	updated.Reminded = false
	updated.ReminderMessageRef = ""
	updated.OrganizerDMRef = ""
	if event.ClearRosterOnRecur {
		if _, err := s.RegistrationRepository.DeleteAllForEvent(ctx, event.UID); err != nil {
			slog.ErrorContext(ctx, "error clearing registration records", logging.ErrKey, err)
			return nil, err
		}
		updated.Roster = nil
	}
	if event.ReminderMessageRef != "" {
		if err := s.AnnouncementSink.Remove(ctx, event.ChannelID, event.ReminderMessageRef); err != nil {
			slog.WarnContext(ctx, "error removing reminder message", logging.ErrKey, err)
		}
	}

	if _, err := s.commit(ctx, updated, event, revision, community, cfg, false); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "rescheduled event in place", "date", date)

	result.Rescheduled = true
	return result, nil
}

// cancelRecurrence stops an event whose organizer lost posting permission
// from recurring and deletes it.
func (s *EventService) cancelRecurrence(ctx context.Context, event *models.Event, cfg models.CommunityConfig) (*RescheduleResult, error) {
	slog.InfoContext(ctx, "organizer no longer has posting permission, removing event")

	if _, err := s.EventRepository.UpdateFields(ctx, event.UID, models.EventPatch{Frequency: utils.Ptr(models.FrequencyNone)}); err != nil {
		slog.ErrorContext(ctx, "error cancelling recurrence", logging.ErrKey, err)
		return nil, err
	}
	if _, err := s.DeleteEvent(ctx, event.UID, false); err != nil {
		return nil, err
	}

	s.sendDM(ctx, event.Owner, models.DirectMessage{
		Kind:        models.DMPermissionLost,
		CommunityID: event.CommunityID,
		EventUID:    event.UID,
		Title:       event.Title,
		Text:        s.Localizer.Text(cfg.Lang, "permission_lost", event.Title),
	})

	return &RescheduleResult{EventUID: event.UID}, nil
}

// repost creates a successor on the next date and retires the original.
func (s *EventService) repost(ctx context.Context, event *models.Event, date string, result *RescheduleResult) (*RescheduleResult, error) {
	successor := event.Clone()
	successor.UID = ""
	successor.Date = date
	successor.StartsAt = time.Time{}
	successor.Sequence = 0
	successor.Reminded = false
	successor.ReminderMessageRef = ""
	successor.AnnouncementRef = ""
	successor.OrganizerDMRef = ""
	successor.Rescheduled = false
	if event.ClearRosterOnRecur {
		successor.Roster = nil
	}

	created, err := s.CreateEvent(ctx, successor)
	if err != nil {
		slog.ErrorContext(ctx, "error creating successor event", logging.ErrKey, err)
		return nil, err
	}
	result.NewEventUID = created.UID

	result.Retirement = RunRetirement(ctx,
		RetirementStep{Outcome: RetiredSoftDeleted, Run: func(ctx context.Context) (int, error) {
			return s.DeleteEvent(ctx, event.UID, true)
		}},
		RetirementStep{Outcome: RetiredHardDeleted, Run: func(ctx context.Context) (int, error) {
			return s.HardDeleteEvent(ctx, event.UID)
		}},
		RetirementStep{Outcome: RetiredFlagged, Run: func(ctx context.Context) (int, error) {
			return s.EventRepository.UpdateFields(ctx, event.UID, models.EventPatch{Rescheduled: utils.Ptr(true)})
		}},
	)
	result.Rescheduled = true

	if result.Retirement == RetirementFailed {
		slog.ErrorContext(ctx, "original event could not be retired after repost",
			"new_event_uid", created.UID,
			logging.PriorityCritical(),
		)
		return result, nil
	}

	s.publish(ctx, models.Notification{
		Action:      models.ActionRescheduled,
		EventUID:    event.UID,
		NewEventUID: created.UID,
		CommunityID: event.CommunityID,
	})

	slog.InfoContext(ctx, "reposted event",
		"new_event_uid", created.UID,
		"date", date,
		"retirement", string(result.Retirement),
	)

	return result, nil
}

// RescheduleDue reschedules every active recurring event that is due. Events
// are independent and run concurrently on the worker pool. It returns the
// number of events rescheduled.
func (s *EventService) RescheduleDue(ctx context.Context) (int, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return 0, domain.ErrServiceUnavailable
	}
	ctx = logging.AppendCtx(ctx, slog.String("operation", "reschedule_due"))

	events, err := s.EventRepository.FindMany(ctx, models.EventFilter{RecurringOnly: true}, 0)
	if err != nil {
		slog.ErrorContext(ctx, "error finding recurring events", logging.ErrKey, err)
		return 0, err
	}

	now := s.now()
	var functions []func() error
	var rescheduled atomic.Int64
	for _, event := range events {
		if !CanReschedule(event, now) {
			continue
		}
		functions = append(functions, func() error {
			unlock := s.lockEvent(event.UID)
			defer unlock()
			res, err := s.RescheduleEvent(ctx, event.UID)
			if err != nil {
				return err
			}
			if res.Rescheduled {
				rescheduled.Add(1)
			}
			return nil
		})
	}

	if errs := s.WorkerPool.RunAll(ctx, functions...); len(errs) > 0 {
		for _, err := range errs {
			slog.WarnContext(ctx, "error rescheduling event", logging.ErrKey, err)
		}
	}

	slog.InfoContext(ctx, "reschedule sweep finished", "due", len(functions), "rescheduled", rescheduled.Load())

	return int(rescheduled.Load()), nil
}
