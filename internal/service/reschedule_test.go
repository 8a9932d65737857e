// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/utils"
)

var afterFirstGame = date("2024-01-05")

func TestRunRetirement(t *testing.T) {
	fails := func(ctx context.Context) (int, error) { return 0, errors.New("boom") }
	noop := func(ctx context.Context) (int, error) { return 0, nil }
	ok := func(ctx context.Context) (int, error) { return 1, nil }

	tests := []struct {
		name    string
		runs    []func(context.Context) (int, error)
		want    RetirementOutcome
		wantRan int
	}{
		{name: "soft delete applies", runs: []func(context.Context) (int, error){ok, ok, ok}, want: RetiredSoftDeleted, wantRan: 1},
		{name: "nothing soft deleted", runs: []func(context.Context) (int, error){noop, ok, ok}, want: RetiredHardDeleted, wantRan: 2},
		{name: "only the flag applies", runs: []func(context.Context) (int, error){fails, fails, ok}, want: RetiredFlagged, wantRan: 3},
		{name: "every step fails", runs: []func(context.Context) (int, error){fails, noop, fails}, want: RetirementFailed, wantRan: 3},
	}

	outcomes := []RetirementOutcome{RetiredSoftDeleted, RetiredHardDeleted, RetiredFlagged}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran := 0
			steps := make([]RetirementStep, len(tt.runs))
			for i, run := range tt.runs {
				steps[i] = RetirementStep{Outcome: outcomes[i], Run: func(ctx context.Context) (int, error) {
					ran++
					return run(ctx)
				}}
			}
			assert.Equal(t, tt.want, RunRetirement(context.Background(), steps...))
			assert.Equal(t, tt.wantRan, ran)
		})
	}
}

func TestRescheduleEvent_NotDue(t *testing.T) {
	env := newTestEnv(t).expect()
	created := createEvent(t, env, weeklyEvent(ids("u-a")...))
	env.now = time.Date(2024, 1, 3, 19, 0, 0, 0, time.UTC)

	res, err := env.svc.RescheduleEvent(context.Background(), created.UID)
	require.NoError(t, err)
	assert.False(t, res.Rescheduled)

	stored := env.events.stored(created.UID)
	assert.Equal(t, "2024-01-03", stored.Date)
	assert.Equal(t, 1, stored.Sequence)
	assert.False(t, stored.Rescheduled)
}

func TestRescheduleEvent_InPlace(t *testing.T) {
	env := newTestEnv(t).expect()
	ctx := context.Background()
	created := createEvent(t, env, weeklyEvent(ids("u-a", "u-b")...))
	reminded := true
	_, err := env.events.UpdateFields(ctx, created.UID, models.EventPatch{Reminded: &reminded, ReminderMessageRef: utils.Ptr("rem-1")})
	require.NoError(t, err)
	env.now = afterFirstGame

	res, err := env.svc.RescheduleEvent(ctx, created.UID)
	require.NoError(t, err)
	assert.True(t, res.Rescheduled)
	assert.Empty(t, res.NewEventUID)

	stored := env.events.stored(created.UID)
	assert.Equal(t, "2024-01-10", stored.Date)
	assert.Equal(t, time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC), stored.StartsAt.UTC())
	assert.Equal(t, 2, stored.Sequence)
	assert.False(t, stored.Reminded)
	assert.Empty(t, stored.ReminderMessageRef)
	assert.Equal(t, []string{"alice#0001", "bob#0002"}, tags(stored.Roster))
	env.sink.AssertCalled(t, "Remove", mock.Anything, "ch1", "rem-1")

	updates := env.published(models.ActionUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, "2024-01-10", updates[0].Changes["date"])

	res, err = env.svc.RescheduleEvent(ctx, created.UID)
	require.NoError(t, err)
	assert.False(t, res.Rescheduled)
}

func TestRescheduleEvent_ClearsRoster(t *testing.T) {
	env := newTestEnv(t).expect()
	event := weeklyEvent(ids("u-a", "u-b")...)
	event.ClearRosterOnRecur = true
	created := createEvent(t, env, event)
	env.now = afterFirstGame

	res, err := env.svc.RescheduleEvent(context.Background(), created.UID)
	require.NoError(t, err)
	require.True(t, res.Rescheduled)
	assert.Empty(t, env.events.stored(created.UID).Roster)
	assert.Zero(t, env.records.count(created.UID))
}

func TestRescheduleEvent_PermissionLost(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.On("HasPostingPermission", mock.Anything, "c1", "ch1", mock.Anything).Return(false, nil)
	env.expect()
	created := createEvent(t, env, weeklyEvent())
	env.now = afterFirstGame

	res, err := env.svc.RescheduleEvent(context.Background(), created.UID)
	require.NoError(t, err)
	assert.False(t, res.Rescheduled)

	stored := env.events.stored(created.UID)
	assert.True(t, stored.Deleted)
	assert.Equal(t, models.FrequencyNone, stored.Frequency)
	lost := env.sentDMs(models.DMPermissionLost)
	require.Len(t, lost, 1)
	assert.Equal(t, "u-owner", lost[0].ID)
}

func TestRescheduleEvent_PermissionCheckErrorProceeds(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.On("HasPostingPermission", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("timeout"))
	env.expect()
	created := createEvent(t, env, weeklyEvent())
	env.now = afterFirstGame

	res, err := env.svc.RescheduleEvent(context.Background(), created.UID)
	require.NoError(t, err)
	assert.True(t, res.Rescheduled)
}

func repostEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	env.cfg.RescheduleMode = models.RescheduleRepost
	return env
}

func TestRescheduleEvent_Repost(t *testing.T) {
	env := repostEnv(t).expect()
	ctx := context.Background()
	created := createEvent(t, env, weeklyEvent(ids("u-a", "u-b")...))
	env.now = afterFirstGame

	res, err := env.svc.RescheduleEvent(ctx, created.UID)
	require.NoError(t, err)
	assert.True(t, res.Rescheduled)
	assert.Equal(t, RetiredSoftDeleted, res.Retirement)
	require.NotEmpty(t, res.NewEventUID)
	assert.NotEqual(t, created.UID, res.NewEventUID)

	successor := env.events.stored(res.NewEventUID)
	require.NotNil(t, successor)
	assert.Equal(t, "2024-01-10", successor.Date)
	assert.Equal(t, 1, successor.Sequence)
	assert.False(t, successor.Rescheduled)
	assert.Equal(t, []string{"alice#0001", "bob#0002"}, tags(successor.Roster))
	assert.Equal(t, 2, env.records.count(res.NewEventUID))

	assert.True(t, env.events.stored(created.UID).Deleted)
	assert.Empty(t, env.published(models.ActionDeleted))

	notes := env.published(models.ActionRescheduled)
	require.Len(t, notes, 1)
	assert.Equal(t, created.UID, notes[0].EventUID)
	assert.Equal(t, res.NewEventUID, notes[0].NewEventUID)
}

func TestRescheduleEvent_RepostRetirementFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*memEvents)
		want  RetirementOutcome
		check func(t *testing.T, original *models.Event)
	}{
		{
			name:  "nothing soft deleted",
			setup: func(m *memEvents) { m.softZero = true },
			want:  RetiredHardDeleted,
			check: func(t *testing.T, original *models.Event) { assert.Nil(t, original) },
		},
		{
			name: "deletes fail",
			setup: func(m *memEvents) {
				m.softErr = errors.New("store down")
				m.hardErr = errors.New("store down")
			},
			want: RetiredFlagged,
			check: func(t *testing.T, original *models.Event) {
				require.NotNil(t, original)
				assert.True(t, original.Rescheduled)
				assert.False(t, original.Deleted)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := repostEnv(t).expect()
			created := createEvent(t, env, weeklyEvent())
			env.now = afterFirstGame
			tt.setup(env.events)

			res, err := env.svc.RescheduleEvent(context.Background(), created.UID)
			require.NoError(t, err)
			assert.True(t, res.Rescheduled)
			assert.Equal(t, tt.want, res.Retirement)
			tt.check(t, env.events.stored(created.UID))
			assert.Len(t, env.published(models.ActionRescheduled), 1)

			res, err = env.svc.RescheduleEvent(context.Background(), created.UID)
			if err == nil {
				assert.False(t, res.Rescheduled)
			}
		})
	}
}

func TestRescheduleEvent_RepostFailureKeepsOriginal(t *testing.T) {
	env := repostEnv(t)
	env.sink.On("Post", mock.Anything, mock.Anything, mock.Anything).Return("msg-1", nil).Once()
	env.sink.On("Post", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("gateway down"))
	env.expect()
	created := createEvent(t, env, weeklyEvent(ids("u-a")...))
	env.now = afterFirstGame

	_, err := env.svc.RescheduleEvent(context.Background(), created.UID)
	require.Error(t, err)

	events, _ := env.events.FindMany(context.Background(), models.EventFilter{IncludeDeleted: true}, 0)
	require.Len(t, events, 1)
	assert.Equal(t, created.UID, events[0].UID)
	assert.False(t, events[0].Deleted)
	assert.Empty(t, env.published(models.ActionRescheduled))
}

func TestRescheduleDue(t *testing.T) {
	env := newTestEnv(t).expect()
	ctx := context.Background()
	first := createEvent(t, env, weeklyEvent())
	second := createEvent(t, env, weeklyEvent())
	later := weeklyEvent()
	later.Date = "2024-01-10"
	notDue := createEvent(t, env, later)
	oneOff := weeklyEvent()
	oneOff.Frequency = models.FrequencyNone
	single := createEvent(t, env, oneOff)
	env.now = afterFirstGame

	n, err := env.svc.RescheduleDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "2024-01-10", env.events.stored(first.UID).Date)
	assert.Equal(t, "2024-01-10", env.events.stored(second.UID).Date)
	assert.Equal(t, "2024-01-10", env.events.stored(notDue.UID).Date)
	assert.Equal(t, "2024-01-03", env.events.stored(single.UID).Date)

	n, err = env.svc.RescheduleDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRescheduleDue_TakesEventLocks(t *testing.T) {
	env := newTestEnv(t).expect()
	ctx := context.Background()
	created := createEvent(t, env, weeklyEvent())
	env.now = afterFirstGame

	locks := concurrent.NewKeyedMutex()
	env.svc.EventLocks = locks

	// A held lock delays the sweep for that event until it is released.
	unlock := locks.Lock(created.UID)
	result := make(chan int, 1)
	go func() {
		n, _ := env.svc.RescheduleDue(ctx)
		result <- n
	}()
	select {
	case <-result:
		t.Fatal("sweep ran while the event was locked")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()

	assert.Equal(t, 1, <-result)
	assert.Zero(t, locks.Len())
}
