// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// NATS subjects the event roster service handles requests on.
const (
	// EventRosterQueue is the queue group all service replicas subscribe with.
	EventRosterQueue = "lfx.event-roster.queue"

	// EventCreateSubject creates an event.
	// The subject is of the form: lfx.event-roster.event.create
	EventCreateSubject = "lfx.event-roster.event.create"

	// EventUpdateSubject updates an event in place.
	EventUpdateSubject = "lfx.event-roster.event.update"

	// EventDeleteSubject soft deletes an event.
	EventDeleteSubject = "lfx.event-roster.event.delete"

	// EventUndeleteSubject restores a soft deleted event.
	EventUndeleteSubject = "lfx.event-roster.event.undelete"

	// EventRescheduleSubject moves a recurring event to its next occurrence.
	EventRescheduleSubject = "lfx.event-roster.event.reschedule"

	// EventRosterSubject returns the reserved and waitlisted participants.
	EventRosterSubject = "lfx.event-roster.event.roster"

	// SignupSubject signs a participant up for an event.
	SignupSubject = "lfx.event-roster.signup"

	// DropOutSubject removes a participant from an event.
	DropOutSubject = "lfx.event-roster.dropout"
)

// NATS subjects the service sends requests or messages to.
const (
	// GatewayCommunityGetSubject resolves a community with members and channels.
	GatewayCommunityGetSubject = "lfx.gateway.community.get"
	// GatewayPermissionCheckSubject checks organizer posting permission.
	GatewayPermissionCheckSubject = "lfx.gateway.permission.check"
	// GatewayAnnouncementPostSubject posts an announcement.
	GatewayAnnouncementPostSubject = "lfx.gateway.announcement.post"
	// GatewayAnnouncementEditSubject edits a posted announcement.
	GatewayAnnouncementEditSubject = "lfx.gateway.announcement.edit"
	// GatewayAnnouncementReactSubject adds a reaction to an announcement.
	GatewayAnnouncementReactSubject = "lfx.gateway.announcement.react"
	// GatewayAnnouncementRemoveSubject removes an announcement.
	GatewayAnnouncementRemoveSubject = "lfx.gateway.announcement.remove"
	// GatewayDirectMessageSubject delivers a direct message. Publish only.
	GatewayDirectMessageSubject = "lfx.gateway.dm.send"

	// NotificationSubjectPrefix prefixes the per-community change feed.
	NotificationSubjectPrefix = "lfx.event-roster.notifications"
)

// NotificationSubject returns the change feed subject for a community.
func NotificationSubject(communityID string) string {
	return fmt.Sprintf("%s.%s", NotificationSubjectPrefix, communityID)
}

// NotificationRoom returns the room name subscribers of a community join.
func NotificationRoom(communityID string) string {
	return "g-" + communityID
}

// NotificationAction is the kind of change a notification reports.
type NotificationAction string

const (
	ActionNew         NotificationAction = "new"
	ActionUpdated     NotificationAction = "updated"
	ActionDeleted     NotificationAction = "deleted"
	ActionRescheduled NotificationAction = "rescheduled"
)

// Notification is a change event published on the notification bus.
type Notification struct {
	Action      NotificationAction `json:"action"`
	Room        string             `json:"room"`
	EventUID    string             `json:"event_uid"`
	NewEventUID string             `json:"new_event_uid,omitempty"`
	CommunityID string             `json:"community_id"`
	AuthorID    string             `json:"author_id,omitempty"`
	Changes     map[string]any     `json:"changes,omitempty"`
}

// Announcement is the structured content of an event announcement. Rendering
// is left to the gateway.
type Announcement struct {
	EventUID           string        `json:"event_uid"`
	CommunityID        string        `json:"community_id"`
	ChannelID          string        `json:"channel_id"`
	Lang               string        `json:"lang,omitempty"`
	Title              string        `json:"title"`
	Description        string        `json:"description,omitempty"`
	Where              string        `json:"where,omitempty"`
	Runtime            string        `json:"runtime,omitempty"`
	StartsAt           *time.Time    `json:"starts_at,omitempty"`
	ISODate            string        `json:"iso_date,omitempty"`
	Owner              Participant   `json:"owner"`
	PlayerCap          int           `json:"player_cap"`
	Reserved           []Participant `json:"reserved"`
	Waitlist           []Participant `json:"waitlist,omitempty"`
	Method             SignupMethod  `json:"method,omitempty"`
	CustomInstructions string        `json:"custom_instructions,omitempty"`
	ReactionSignUp     string        `json:"reaction_sign_up,omitempty"`
	ReactionDropOut    string        `json:"reaction_drop_out,omitempty"`
}

// DirectMessageKind tells the gateway which template to render.
type DirectMessageKind string

const (
	DMRejection          DirectMessageKind = "rejection"
	DMCustomInstructions DirectMessageKind = "custom_instructions"
	DMPromoted           DirectMessageKind = "promoted"
	DMEditLink           DirectMessageKind = "edit_link"
	DMPermissionLost     DirectMessageKind = "permission_lost"
)

// DirectMessage is the content sent to a single participant.
type DirectMessage struct {
	Kind        DirectMessageKind `json:"kind"`
	CommunityID string            `json:"community_id"`
	EventUID    string            `json:"event_uid,omitempty"`
	Title       string            `json:"title,omitempty"`
	Text        string            `json:"text"`
}

// Request and reply payloads exchanged with the chat gateway.

// CommunityRequest asks the gateway for a community's context.
type CommunityRequest struct {
	CommunityID string `json:"community_id"`
}

// PermissionRequest asks whether a participant may post in a channel.
type PermissionRequest struct {
	CommunityID   string `json:"community_id"`
	ChannelID     string `json:"channel_id"`
	ParticipantID string `json:"participant_id"`
}

// PermissionResponse is the reply to a PermissionRequest.
type PermissionResponse struct {
	Allowed bool `json:"allowed"`
}

// AnnouncementRequest posts or edits an announcement.
type AnnouncementRequest struct {
	ChannelID    string       `json:"channel_id"`
	MessageRef   string       `json:"message_ref,omitempty"`
	Announcement Announcement `json:"announcement"`
}

// AnnouncementResponse carries the reference of the posted message.
type AnnouncementResponse struct {
	MessageRef string `json:"message_ref"`
	Error      string `json:"error,omitempty"`
}

// ReactionRequest adds a reaction to an announcement.
type ReactionRequest struct {
	ChannelID  string `json:"channel_id"`
	MessageRef string `json:"message_ref"`
	Symbol     string `json:"symbol"`
}

// RemoveRequest removes a posted message.
type RemoveRequest struct {
	ChannelID  string `json:"channel_id"`
	MessageRef string `json:"message_ref"`
}

// DirectMessageEnvelope addresses a DirectMessage to a participant.
type DirectMessageEnvelope struct {
	Recipient Participant   `json:"recipient"`
	Message   DirectMessage `json:"message"`
}

// GatewayResponse is the generic reply to gateway calls without a payload.
type GatewayResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Request and reply payloads accepted on the intake subjects.

// EventRefRequest references an existing event.
type EventRefRequest struct {
	EventUID             string `json:"event_uid"`
	SuppressNotification bool   `json:"suppress_notification,omitempty"`
}

// SignupRequest signs a participant up, optionally with an explicit timestamp.
type SignupRequest struct {
	EventUID    string      `json:"event_uid"`
	Participant Participant `json:"participant"`
	Timestamp   *time.Time  `json:"timestamp,omitempty"`
}

// DropOutRequest removes a participant from an event.
type DropOutRequest struct {
	EventUID    string      `json:"event_uid"`
	Participant Participant `json:"participant"`
}

// RosterResponse is the partitioned roster of an event.
type RosterResponse struct {
	EventUID  string        `json:"event_uid"`
	PlayerCap int           `json:"player_cap"`
	Reserved  []Participant `json:"reserved"`
	Waitlist  []Participant `json:"waitlist"`
}

// RescheduleResponse reports the outcome of a reschedule.
type RescheduleResponse struct {
	Rescheduled bool   `json:"rescheduled"`
	EventUID    string `json:"event_uid"`
	NewEventUID string `json:"new_event_uid,omitempty"`
}

// DeleteResponse reports how many events a delete touched.
type DeleteResponse struct {
	Modified int `json:"modified"`
}

// ErrorResponse is the reply sent when a request fails.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}
