// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

// MockRegistrationRepository implements domain.RegistrationRepository for testing
type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) ListByEvent(ctx context.Context, eventUID string) ([]*models.RegistrationRecord, error) {
	args := m.Called(ctx, eventUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RegistrationRecord), args.Error(1)
}

func (m *MockRegistrationRepository) FetchOne(ctx context.Context, eventUID, idOrTag string) (*models.RegistrationRecord, error) {
	args := m.Called(ctx, eventUID, idOrTag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RegistrationRecord), args.Error(1)
}

func (m *MockRegistrationRepository) Create(ctx context.Context, record *models.RegistrationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRegistrationRepository) Delete(ctx context.Context, eventUID, recordID string) error {
	args := m.Called(ctx, eventUID, recordID)
	return args.Error(0)
}

func (m *MockRegistrationRepository) DeleteAllForEvent(ctx context.Context, eventUID string) (int, error) {
	args := m.Called(ctx, eventUID)
	return args.Int(0), args.Error(1)
}

func (m *MockRegistrationRepository) DeleteAllForParticipant(ctx context.Context, eventUID, idOrTag string) (int, error) {
	args := m.Called(ctx, eventUID, idOrTag)
	return args.Int(0), args.Error(1)
}

func (m *MockRegistrationRepository) IsReady(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
