// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

// MockEventRepository implements domain.EventRepository for testing
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Get(ctx context.Context, eventUID string) (*models.Event, error) {
	args := m.Called(ctx, eventUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepository) GetWithRevision(ctx context.Context, eventUID string) (*models.Event, uint64, error) {
	args := m.Called(ctx, eventUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.Event), args.Get(1).(uint64), args.Error(2)
}

func (m *MockEventRepository) Upsert(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Update(ctx context.Context, event *models.Event, revision uint64) error {
	args := m.Called(ctx, event, revision)
	return args.Error(0)
}

func (m *MockEventRepository) UpdateFields(ctx context.Context, eventUID string, patch models.EventPatch) (int, error) {
	args := m.Called(ctx, eventUID, patch)
	return args.Int(0), args.Error(1)
}

func (m *MockEventRepository) SoftDelete(ctx context.Context, eventUID string) (int, error) {
	args := m.Called(ctx, eventUID)
	return args.Int(0), args.Error(1)
}

func (m *MockEventRepository) HardDelete(ctx context.Context, eventUID string) (int, error) {
	args := m.Called(ctx, eventUID)
	return args.Int(0), args.Error(1)
}

func (m *MockEventRepository) FindMany(ctx context.Context, filter models.EventFilter, limit int) ([]*models.Event, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) UpdateMany(ctx context.Context, filter models.EventFilter, patch models.EventPatch) (int, error) {
	args := m.Called(ctx, filter, patch)
	return args.Int(0), args.Error(1)
}

func (m *MockEventRepository) IsReady(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
