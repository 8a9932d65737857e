// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvent_Clone(t *testing.T) {
	e := &Event{
		UID:        "e1",
		Roster:     []Participant{{Tag: "a"}},
		Recurrence: Recurrence{Frequency: FrequencyWeekly, Weekdays: Weekdays{time.Monday}},
	}

	c := e.Clone()
	c.Roster[0].Tag = "changed"
	c.Weekdays[0] = time.Friday

	assert.Equal(t, "a", e.Roster[0].Tag)
	assert.Equal(t, time.Monday, e.Weekdays[0])
	assert.Nil(t, (*Event)(nil).Clone())
}

func TestEvent_EndsAt(t *testing.T) {
	start := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	e := &Event{StartsAt: start, DurationHours: 2.5}
	assert.Equal(t, start.Add(150*time.Minute), e.EndsAt())
}

func TestEventPatch_Apply(t *testing.T) {
	e := &Event{Recurrence: Recurrence{Frequency: FrequencyDaily}}
	none := FrequencyNone
	deleted := true

	assert.True(t, EventPatch{}.IsEmpty())

	patch := EventPatch{Frequency: &none, Deleted: &deleted}
	assert.False(t, patch.IsEmpty())
	assert.True(t, patch.Apply(e))
	assert.Equal(t, FrequencyNone, e.Frequency)
	assert.True(t, e.Deleted)

	// applying the same patch again changes nothing
	assert.False(t, patch.Apply(e))
}

func TestEventFilter_Matches(t *testing.T) {
	active := &Event{CommunityID: "c1", ChannelID: "ch1", Owner: Participant{ID: "o1"}, Recurrence: Recurrence{Frequency: FrequencyWeekly}}
	deleted := &Event{CommunityID: "c1", Deleted: true}

	tests := []struct {
		name   string
		filter EventFilter
		event  *Event
		want   bool
	}{
		{"empty filter matches active", EventFilter{}, active, true},
		{"empty filter skips deleted", EventFilter{}, deleted, false},
		{"include deleted", EventFilter{IncludeDeleted: true}, deleted, true},
		{"only deleted skips active", EventFilter{OnlyDeleted: true}, active, false},
		{"community mismatch", EventFilter{CommunityID: "c2"}, active, false},
		{"channel match", EventFilter{ChannelID: "ch1"}, active, true},
		{"owner mismatch", EventFilter{OwnerID: "o2"}, active, false},
		{"recurring only", EventFilter{RecurringOnly: true}, active, true},
		{"recurring only skips one-off", EventFilter{RecurringOnly: true, IncludeDeleted: true}, deleted, false},
		{"nil event", EventFilter{}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestRecurrence_Interval(t *testing.T) {
	assert.Equal(t, DefaultWeekInterval, Recurrence{}.Interval())
	assert.Equal(t, 1, Recurrence{WeekInterval: -3}.Interval())
	assert.Equal(t, 3, Recurrence{WeekInterval: 3}.Interval())
}

func TestFrequency_Repeats(t *testing.T) {
	assert.False(t, FrequencyNone.Repeats())
	assert.False(t, Frequency("hourly").Repeats())
	assert.True(t, FrequencyBiweekly.Repeats())
}
