// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/concurrent"
)

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// SkipRevisionCheck stores events without the optimistic revision check.
	// Only meant for local development.
	SkipRevisionCheck bool
	// EditLinkBaseURL is where organizers edit their events. The event uid
	// is appended. Empty disables the edit link DM.
	EditLinkBaseURL string
}

// EventService implements the event lifecycle, signups and drop-outs.
type EventService struct {
	EventRepository        domain.EventRepository
	RegistrationRepository domain.RegistrationRepository
	CommunityResolver      domain.CommunityResolver
	AnnouncementSink       domain.AnnouncementSink
	NotificationBus        domain.NotificationBus
	DirectMessageSink      domain.DirectMessageSink
	ConfigProvider         domain.CommunityConfigProvider
	Localizer              domain.Localizer
	Reconciler             *RosterReconciler
	WorkerPool             *concurrent.WorkerPool
	Config                 ServiceConfig

	// EventLocks, when set, serializes the sweep and purge jobs with the
	// request handlers that share it.
	EventLocks *concurrent.KeyedMutex

	// Now is the clock. It defaults to time.Now.
	Now func() time.Time

	validate *validator.Validate
}

// NewEventService creates a new EventService.
func NewEventService(
	eventRepository domain.EventRepository,
	registrationRepository domain.RegistrationRepository,
	communityResolver domain.CommunityResolver,
	announcementSink domain.AnnouncementSink,
	notificationBus domain.NotificationBus,
	directMessageSink domain.DirectMessageSink,
	configProvider domain.CommunityConfigProvider,
	localizer domain.Localizer,
	workerPool *concurrent.WorkerPool,
	config ServiceConfig,
) *EventService {
	if workerPool == nil {
		workerPool = concurrent.NewWorkerPool(1)
	}
	return &EventService{
		EventRepository:        eventRepository,
		RegistrationRepository: registrationRepository,
		CommunityResolver:      communityResolver,
		AnnouncementSink:       announcementSink,
		NotificationBus:        notificationBus,
		DirectMessageSink:      directMessageSink,
		ConfigProvider:         configProvider,
		Localizer:              localizer,
		Reconciler:             NewRosterReconciler(registrationRepository),
		WorkerPool:             workerPool,
		Config:                 config,
		Now:                    time.Now,
		validate:               validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ServiceReady checks if the service is ready for use.
func (s *EventService) ServiceReady() bool {
	return s.EventRepository != nil &&
		s.RegistrationRepository != nil &&
		s.CommunityResolver != nil &&
		s.AnnouncementSink != nil &&
		s.NotificationBus != nil &&
		s.DirectMessageSink != nil &&
		s.ConfigProvider != nil &&
		s.Localizer != nil &&
		s.Reconciler != nil
}

// lockEvent takes the event's lock when EventLocks is set.
func (s *EventService) lockEvent(eventUID string) func() {
	if s.EventLocks == nil {
		return func() {}
	}
	return s.EventLocks.Lock(eventUID)
}

func (s *EventService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *EventService) validation() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return s.validate
}

// eventContext attaches the event identity to the logging context.
func eventContext(ctx context.Context, operation string, event *models.Event) context.Context {
	ctx = logging.AppendCtx(ctx, slog.String("operation", operation))
	if event == nil {
		return ctx
	}
	if event.UID != "" {
		ctx = logging.AppendCtx(ctx, slog.String("event_uid", event.UID))
	}
	if event.CommunityID != "" {
		ctx = logging.AppendCtx(ctx, slog.String("community_id", event.CommunityID))
	}
	return ctx
}

// communityContext resolves the community and its configuration. An
// unavailable resolver is reported as the community not being found.
func (s *EventService) communityContext(ctx context.Context, communityID string) (*models.Community, models.CommunityConfig, error) {
	community, err := s.CommunityResolver.ResolveCommunity(ctx, communityID)
	if err != nil || community == nil {
		slog.WarnContext(ctx, "community could not be resolved", logging.ErrKey, err)
		return nil, models.CommunityConfig{}, domain.NewNotFoundError("community not found", domain.ErrCommunityNotFound)
	}

	cfg, err := s.ConfigProvider.CommunityConfig(ctx, communityID)
	if err != nil {
		slog.ErrorContext(ctx, "error loading community configuration", logging.ErrKey, err)
		return nil, models.CommunityConfig{}, domain.NewInternalError("community configuration unavailable", err)
	}
	return community, cfg, nil
}

// resolveChannel fills in the event's channel when none is set, preferring
// the community's configured channels.
func resolveChannel(event *models.Event, community *models.Community, cfg models.CommunityConfig) error {
	if event.ChannelID != "" {
		if !community.HasChannel(event.ChannelID) {
			return domain.NewNotFoundError("channel not found", domain.ErrChannelNotFound)
		}
		return nil
	}
	for _, id := range cfg.Channels {
		if community.HasChannel(id) {
			event.ChannelID = id
			return nil
		}
	}
	if len(community.Channels) > 0 {
		event.ChannelID = community.Channels[0].ID
		return nil
	}
	return domain.NewNotFoundError("channel not found", domain.ErrChannelNotFound)
}

// announcement builds the structured announcement content for an event.
func announcement(event *models.Event, cfg models.CommunityConfig) models.Announcement {
	reserved, waitlist := Partition(event.Roster, event.PlayerCap, event.DisableWaitlist)
	a := models.Announcement{
		EventUID:           event.UID,
		CommunityID:        event.CommunityID,
		ChannelID:          event.ChannelID,
		Lang:               cfg.Lang,
		Title:              event.Title,
		Description:        event.Description,
		Where:              event.Where,
		Runtime:            event.Runtime,
		Owner:              event.Owner,
		PlayerCap:          event.PlayerCap,
		Reserved:           reserved,
		Waitlist:           waitlist,
		Method:             event.Method,
		CustomInstructions: event.CustomInstructions,
	}
	if !event.HideSchedule {
		start := event.StartsAt
		a.StartsAt = &start
		a.ISODate = event.ISODate
	}
	if event.AutomatedSignups() {
		a.ReactionSignUp = cfg.ReactionSignUp
		if cfg.DropOuts {
			a.ReactionDropOut = cfg.ReactionDropOut
		}
	}
	return a
}

func (s *EventService) sendDM(ctx context.Context, recipient models.Participant, msg models.DirectMessage) {
	if recipient.IsEmpty() {
		return
	}
	if err := s.DirectMessageSink.SendTo(ctx, recipient, msg); err != nil {
		slog.WarnContext(ctx, "error sending direct message", "kind", string(msg.Kind), logging.ErrKey, err)
	}
}

func (s *EventService) publish(ctx context.Context, n models.Notification) {
	n.Room = models.NotificationRoom(n.CommunityID)
	if err := s.NotificationBus.Publish(ctx, n); err != nil {
		slog.WarnContext(ctx, "error publishing notification", "action", string(n.Action), logging.ErrKey, err)
	}
}
