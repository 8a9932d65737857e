// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

// MockCommunityResolver implements domain.CommunityResolver for testing
type MockCommunityResolver struct {
	mock.Mock
}

func (m *MockCommunityResolver) ResolveCommunity(ctx context.Context, communityID string) (*models.Community, error) {
	args := m.Called(ctx, communityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Community), args.Error(1)
}

func (m *MockCommunityResolver) HasPostingPermission(ctx context.Context, communityID, channelID string, p models.Participant) (bool, error) {
	args := m.Called(ctx, communityID, channelID, p)
	return args.Bool(0), args.Error(1)
}

// MockAnnouncementSink implements domain.AnnouncementSink for testing
type MockAnnouncementSink struct {
	mock.Mock
}

func (m *MockAnnouncementSink) Post(ctx context.Context, channelID string, content models.Announcement) (string, error) {
	args := m.Called(ctx, channelID, content)
	return args.String(0), args.Error(1)
}

func (m *MockAnnouncementSink) Edit(ctx context.Context, channelID, messageRef string, content models.Announcement) (string, error) {
	args := m.Called(ctx, channelID, messageRef, content)
	return args.String(0), args.Error(1)
}

func (m *MockAnnouncementSink) React(ctx context.Context, channelID, messageRef, symbol string) error {
	args := m.Called(ctx, channelID, messageRef, symbol)
	return args.Error(0)
}

func (m *MockAnnouncementSink) Remove(ctx context.Context, channelID, messageRef string) error {
	args := m.Called(ctx, channelID, messageRef)
	return args.Error(0)
}

// MockNotificationBus implements domain.NotificationBus for testing
type MockNotificationBus struct {
	mock.Mock
}

func (m *MockNotificationBus) Publish(ctx context.Context, notification models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// MockDirectMessageSink implements domain.DirectMessageSink for testing
type MockDirectMessageSink struct {
	mock.Mock
}

func (m *MockDirectMessageSink) SendTo(ctx context.Context, recipient models.Participant, content models.DirectMessage) error {
	args := m.Called(ctx, recipient, content)
	return args.Error(0)
}

// MockCommunityConfigProvider implements domain.CommunityConfigProvider for testing
type MockCommunityConfigProvider struct {
	mock.Mock
}

func (m *MockCommunityConfigProvider) CommunityConfig(ctx context.Context, communityID string) (models.CommunityConfig, error) {
	args := m.Called(ctx, communityID)
	return args.Get(0).(models.CommunityConfig), args.Error(1)
}

// MockLocalizer implements domain.Localizer for testing
type MockLocalizer struct {
	mock.Mock
}

func (m *MockLocalizer) Rejection(lang string, reason models.RejectionReason, roles []string) string {
	args := m.Called(lang, reason, roles)
	return args.String(0)
}

func (m *MockLocalizer) Text(lang, key string, args ...any) string {
	called := m.Called(lang, key, args)
	return called.String(0)
}
