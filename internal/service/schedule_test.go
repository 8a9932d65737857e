// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

func TestRuntimeToHours(t *testing.T) {
	tests := []struct {
		runtime string
		want    float64
	}{
		{"2.5 hours", 2.5},
		{"3h", 3},
		{"  about 4 hours, maybe 5", 4},
		{"an evening", 0},
		{"", 0},
		{"...", 0},
	}
	for _, tt := range tests {
		t.Run(tt.runtime, func(t *testing.T) {
			assert.Equal(t, tt.want, RuntimeToHours(tt.runtime))
		})
	}
}

func TestISODate(t *testing.T) {
	assert.Equal(t, "20240310T183000+0530", ISODate(time.Date(2024, 3, 10, 18, 30, 0, 0, time.FixedZone("", 5*3600+30*60))))
	assert.Equal(t, "20240310T090000-0445", ISODate(time.Date(2024, 3, 10, 9, 0, 0, 0, time.FixedZone("", -(4*3600+45*60)))))
	assert.Equal(t, "20240101T000000+0000", ISODate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDeriveSchedule(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fixed date with quarter hour offset", func(t *testing.T) {
		event := &models.Event{
			WhenMode:              models.WhenDateTime,
			Date:                  "2024-03-10",
			Time:                  "18:30",
			UTCOffsetQuarterHours: -20,
			Runtime:               "2 hours",
		}
		require.NoError(t, deriveSchedule(event, now))
		assert.Equal(t, time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC), event.StartsAt.UTC())
		assert.Equal(t, "20240310T183000-0500", event.ISODate)
		assert.Equal(t, 2.0, event.DurationHours)
		assert.Equal(t, models.DefaultWeekInterval, event.WeekInterval)
	})

	t.Run("named time zone wins", func(t *testing.T) {
		event := &models.Event{
			WhenMode:              models.WhenDateTime,
			Date:                  "2024-03-10",
			Time:                  "18:30",
			UTCOffsetQuarterHours: 8,
			TimeZone:              "UTC",
		}
		require.NoError(t, deriveSchedule(event, now))
		assert.Equal(t, "20240310T183000+0000", event.ISODate)
	})

	t.Run("immediate keeps its start", func(t *testing.T) {
		event := &models.Event{WhenMode: models.WhenNow}
		require.NoError(t, deriveSchedule(event, now))
		assert.Equal(t, now, event.StartsAt)

		require.NoError(t, deriveSchedule(event, now.Add(time.Hour)))
		assert.Equal(t, now, event.StartsAt)
	})

	t.Run("invalid time", func(t *testing.T) {
		event := &models.Event{WhenMode: models.WhenDateTime, Date: "2024-03-10", Time: "25:99"}
		assert.Error(t, deriveSchedule(event, now))
	})
}

func TestCanReschedule(t *testing.T) {
	base := func() *models.Event {
		e := weeklyEvent()
		require.NoError(t, deriveSchedule(e, testNow))
		return e
	}

	tests := []struct {
		name   string
		modify func(*models.Event)
		now    time.Time
		want   bool
	}{
		{name: "ended weekly event", now: date("2024-01-05"), want: true},
		{name: "before end", now: time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC), want: false},
		{name: "already rescheduled", modify: func(e *models.Event) { e.Rescheduled = true }, now: date("2024-01-05")},
		{name: "immediate event", modify: func(e *models.Event) { e.WhenMode = models.WhenNow }, now: date("2024-01-05")},
		{name: "weekly without weekdays", modify: func(e *models.Event) { e.Weekdays = nil }, now: date("2024-01-05")},
		{name: "not recurring", modify: func(e *models.Event) { e.Frequency = models.FrequencyNone }, now: date("2024-01-05")},
		{name: "next occurrence passed too", now: date("2024-01-11")},
		{name: "daily", modify: func(e *models.Event) { e.Frequency = models.FrequencyDaily; e.Weekdays = nil }, now: time.Date(2024, 1, 3, 22, 0, 0, 0, time.UTC), want: true},
		{name: "monthly", modify: func(e *models.Event) { e.Frequency = models.FrequencyMonthly }, now: date("2024-01-05"), want: true},
		{name: "deleted", modify: func(e *models.Event) { e.Deleted = true }, now: date("2024-01-05")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base()
			if tt.modify != nil {
				tt.modify(e)
			}
			assert.Equal(t, tt.want, CanReschedule(e, tt.now))
		})
	}
}
