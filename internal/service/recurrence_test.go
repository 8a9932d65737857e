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

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		weekdays  models.Weekdays
		frequency models.Frequency
		mode      models.MonthlyMode
		interval  int
		want      string
		wantOK    bool
	}{
		{name: "no repeat", base: "2024-01-03", frequency: models.FrequencyNone},
		{name: "invalid frequency", base: "2024-01-03", frequency: models.Frequency("hourly")},
		{name: "daily", base: "2024-02-28", frequency: models.FrequencyDaily, want: "2024-02-29", wantOK: true},
		{name: "weekly same weekday", base: "2024-01-03", weekdays: models.Weekdays{time.Wednesday}, frequency: models.FrequencyWeekly, want: "2024-01-10", wantOK: true},
		{name: "weekly next listed weekday", base: "2024-01-03", weekdays: models.Weekdays{time.Monday, time.Friday}, frequency: models.FrequencyWeekly, want: "2024-01-05", wantOK: true},
		{name: "weekly without weekdays", base: "2024-01-03", frequency: models.FrequencyWeekly},
		{name: "biweekly monday", base: "2024-01-01", weekdays: models.Weekdays{time.Monday}, frequency: models.FrequencyBiweekly, interval: 2, want: "2024-01-15", wantOK: true},
		{name: "biweekly several weekdays", base: "2024-01-01", weekdays: models.Weekdays{time.Monday, time.Wednesday}, frequency: models.FrequencyBiweekly, interval: 2, want: "2024-01-15", wantOK: true},
		{name: "biweekly across year end", base: "2024-12-30", weekdays: models.Weekdays{time.Monday}, frequency: models.FrequencyBiweekly, interval: 2, want: "2025-01-13", wantOK: true},
		{name: "sunday to monday crosses a week", base: "2024-01-07", weekdays: models.Weekdays{time.Monday}, frequency: models.FrequencyBiweekly, interval: 1, want: "2024-01-08", wantOK: true},
		{name: "every three weeks", base: "2024-01-03", weekdays: models.Weekdays{time.Wednesday}, frequency: models.FrequencyBiweekly, interval: 3, want: "2024-01-24", wantOK: true},
		{name: "biweekly without weekdays", base: "2024-01-01", frequency: models.FrequencyBiweekly, interval: 2},
		{name: "monthly date", base: "2024-03-15", frequency: models.FrequencyMonthly, mode: models.MonthlyModeDate, want: "2024-04-15", wantOK: true},
		{name: "monthly date clamps", base: "2024-01-31", frequency: models.FrequencyMonthly, mode: models.MonthlyModeDate, want: "2024-02-29", wantOK: true},
		{name: "monthly date december", base: "2024-12-31", frequency: models.FrequencyMonthly, mode: models.MonthlyModeDate, want: "2025-01-31", wantOK: true},
		{name: "monthly second tuesday", base: "2024-01-09", frequency: models.FrequencyMonthly, mode: models.MonthlyModeWeekday, want: "2024-02-13", wantOK: true},
		{name: "monthly default mode is weekday", base: "2024-01-09", frequency: models.FrequencyMonthly, want: "2024-02-13", wantOK: true},
		{name: "fifth monday falls back to fourth", base: "2024-01-29", frequency: models.FrequencyMonthly, mode: models.MonthlyModeWeekday, want: "2024-02-26", wantOK: true},
		{name: "fifth monday in december", base: "2024-12-30", frequency: models.FrequencyMonthly, mode: models.MonthlyModeWeekday, want: "2025-01-27", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextOccurrence(date(tt.base), tt.weekdays, tt.frequency, tt.mode, tt.interval)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.True(t, got.IsZero())
				return
			}
			assert.Equal(t, tt.want, FormatDate(got))
		})
	}
}

func TestNextOccurrence_Deterministic(t *testing.T) {
	base := date("2024-05-17")
	days := models.Weekdays{time.Tuesday, time.Saturday}
	first, ok1 := NextOccurrence(base, days, models.FrequencyBiweekly, "", 2)
	second, ok2 := NextOccurrence(base, days, models.FrequencyBiweekly, "", 2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestNextOccurrence_BiweeklyWeekGap(t *testing.T) {
	days := models.Weekdays{time.Tuesday, time.Saturday}
	for interval := 1; interval <= 4; interval++ {
		for base := date("2024-11-01"); base.Before(date("2025-03-01")); base = base.AddDate(0, 0, 1) {
			next, ok := NextOccurrence(base, days, models.FrequencyBiweekly, "", interval)
			require.True(t, ok)
			assert.GreaterOrEqual(t, isoWeekDistance(base, next), interval, "base %s next %s", FormatDate(base), FormatDate(next))
			assert.True(t, days.Contains(next.Weekday()))
		}
	}
}

func TestNextOccurrence_KeepsDateOnly(t *testing.T) {
	base := time.Date(2024, 1, 3, 21, 45, 0, 0, time.FixedZone("", -5*3600))
	got, ok := NextOccurrence(base, nil, models.FrequencyDaily, "", 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestNextOccurrenceFor(t *testing.T) {
	event := weeklyEvent()
	got, ok := NextOccurrenceFor(event)
	require.True(t, ok)
	assert.Equal(t, "2024-01-10", FormatDate(got))

	event.Date = "not a date"
	_, ok = NextOccurrenceFor(event)
	assert.False(t, ok)

	_, ok = NextOccurrenceFor(nil)
	assert.False(t, ok)
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"monday", "Wed", " FRIDAY ", "mon", ""})
	require.NoError(t, err)
	assert.Equal(t, models.Weekdays{time.Monday, time.Wednesday, time.Friday}, days)

	_, err = ParseWeekdays([]string{"someday"})
	assert.Error(t, err)
}
