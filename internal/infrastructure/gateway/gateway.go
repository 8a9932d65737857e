// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package gateway talks to the chat gateway that owns communities, channels
// and message delivery.
package gateway

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/logging"
)

// Requester sends JSON requests and publishes JSON messages.
type Requester interface {
	RequestJSON(ctx context.Context, subject string, payload any, out any) error
	PublishJSON(ctx context.Context, subject string, payload any) error
}

// Client implements the community resolver, announcement sink and direct
// message sink over NATS request/reply.
type Client struct {
	requester Requester
}

var (
	_ domain.CommunityResolver = (*Client)(nil)
	_ domain.AnnouncementSink  = (*Client)(nil)
	_ domain.DirectMessageSink = (*Client)(nil)
)

// NewClient creates a gateway client.
func NewClient(requester Requester) *Client {
	return &Client{requester: requester}
}

// ResolveCommunity returns the community with its members and channels.
func (c *Client) ResolveCommunity(ctx context.Context, communityID string) (*models.Community, error) {
	if communityID == "" {
		return nil, domain.NewValidationError("community id is required")
	}

	var community models.Community
	err := c.requester.RequestJSON(ctx, models.GatewayCommunityGetSubject,
		models.CommunityRequest{CommunityID: communityID}, &community)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError("community not found", domain.ErrCommunityNotFound, err)
		}
		return nil, err
	}
	if community.ID == "" {
		community.ID = communityID
	}
	return &community, nil
}

// HasPostingPermission reports whether p may post in the channel.
func (c *Client) HasPostingPermission(ctx context.Context, communityID, channelID string, p models.Participant) (bool, error) {
	var reply models.PermissionResponse
	err := c.requester.RequestJSON(ctx, models.GatewayPermissionCheckSubject, models.PermissionRequest{
		CommunityID:   communityID,
		ChannelID:     channelID,
		ParticipantID: p.ID,
	}, &reply)
	if err != nil {
		return false, err
	}
	return reply.Allowed, nil
}

// Post posts an announcement and returns the reference of the message.
func (c *Client) Post(ctx context.Context, channelID string, content models.Announcement) (string, error) {
	return c.announce(ctx, models.GatewayAnnouncementPostSubject, models.AnnouncementRequest{
		ChannelID:    channelID,
		Announcement: content,
	})
}

// Edit replaces the content of a posted announcement. The gateway may answer
// with a new reference when the message had to be re-created.
func (c *Client) Edit(ctx context.Context, channelID, messageRef string, content models.Announcement) (string, error) {
	if messageRef == "" {
		return "", domain.NewValidationError("message reference is required")
	}
	ref, err := c.announce(ctx, models.GatewayAnnouncementEditSubject, models.AnnouncementRequest{
		ChannelID:    channelID,
		MessageRef:   messageRef,
		Announcement: content,
	})
	if err != nil {
		return "", err
	}
	if ref == "" {
		ref = messageRef
	}
	return ref, nil
}

func (c *Client) announce(ctx context.Context, subject string, req models.AnnouncementRequest) (string, error) {
	var reply models.AnnouncementResponse
	if err := c.requester.RequestJSON(ctx, subject, req, &reply); err != nil {
		return "", err
	}
	if reply.MessageRef == "" && subject == models.GatewayAnnouncementPostSubject {
		return "", domain.NewInternalError("gateway returned no message reference", domain.ErrAnnouncementFailed)
	}
	return reply.MessageRef, nil
}

// React adds a reaction to a posted announcement.
func (c *Client) React(ctx context.Context, channelID, messageRef, symbol string) error {
	return c.call(ctx, models.GatewayAnnouncementReactSubject, models.ReactionRequest{
		ChannelID:  channelID,
		MessageRef: messageRef,
		Symbol:     symbol,
	})
}

// Remove deletes a posted message. A message that is already gone is not an
// error.
func (c *Client) Remove(ctx context.Context, channelID, messageRef string) error {
	if messageRef == "" {
		return nil
	}
	err := c.call(ctx, models.GatewayAnnouncementRemoveSubject, models.RemoveRequest{
		ChannelID:  channelID,
		MessageRef: messageRef,
	})
	if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
		slog.DebugContext(ctx, "message already removed", "message_ref", messageRef)
		return nil
	}
	return err
}

func (c *Client) call(ctx context.Context, subject string, payload any) error {
	var reply models.GatewayResponse
	if err := c.requester.RequestJSON(ctx, subject, payload, &reply); err != nil {
		return err
	}
	if !reply.OK {
		return domain.NewInternalError("gateway rejected " + subject)
	}
	return nil
}

// SendTo publishes a direct message for the gateway to deliver. Delivery is
// not confirmed.
func (c *Client) SendTo(ctx context.Context, recipient models.Participant, content models.DirectMessage) error {
	err := c.requester.PublishJSON(ctx, models.GatewayDirectMessageSubject, models.DirectMessageEnvelope{
		Recipient: recipient,
		Message:   content,
	})
	if err != nil {
		slog.WarnContext(ctx, "error publishing direct message", "kind", string(content.Kind), logging.ErrKey, err)
	}
	return err
}
