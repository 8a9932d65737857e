// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// CommunityResolver resolves the community an event belongs to. It may be
// unavailable, in which case callers report the community as not found.
type CommunityResolver interface {
	ResolveCommunity(ctx context.Context, communityID string) (*models.Community, error)
	HasPostingPermission(ctx context.Context, communityID, channelID string, p models.Participant) (bool, error)
}

// AnnouncementSink posts and maintains event announcements.
type AnnouncementSink interface {
	Post(ctx context.Context, channelID string, content models.Announcement) (string, error)
	Edit(ctx context.Context, channelID, messageRef string, content models.Announcement) (string, error)
	React(ctx context.Context, channelID, messageRef, symbol string) error
	Remove(ctx context.Context, channelID, messageRef string) error
}

// NotificationBus publishes change notifications. Fire and forget.
type NotificationBus interface {
	Publish(ctx context.Context, notification models.Notification) error
}

// DirectMessageSink delivers a message to a single participant. Best effort.
type DirectMessageSink interface {
	SendTo(ctx context.Context, recipient models.Participant, content models.DirectMessage) error
}

// CommunityConfigProvider resolves the configuration of a community.
type CommunityConfigProvider interface {
	CommunityConfig(ctx context.Context, communityID string) (models.CommunityConfig, error)
}

// Localizer renders user-facing strings in a community's language.
type Localizer interface {
	Rejection(lang string, reason models.RejectionReason, roles []string) string
	Text(lang, key string, args ...any) string
}
