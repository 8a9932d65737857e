// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// Frequency is how often an event recurs.
type Frequency string

// Supported frequencies.
const (
	FrequencyNone     Frequency = "none"
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Repeats reports whether f schedules a successor occurrence.
func (f Frequency) Repeats() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// MonthlyMode selects how a monthly recurrence picks the next date.
type MonthlyMode string

const (
	// MonthlyModeWeekday keeps the weekday and its ordinal within the month.
	MonthlyModeWeekday MonthlyMode = "weekday"
	// MonthlyModeDate keeps the day of month.
	MonthlyModeDate MonthlyMode = "date"
)

// DefaultWeekInterval is the week gap used by biweekly events when none is set.
const DefaultWeekInterval = 2

// Weekdays is a set of weekdays on which a weekly event may occur.
type Weekdays []time.Weekday

// Contains reports whether d is in the set.
func (w Weekdays) Contains(d time.Weekday) bool {
	for _, x := range w {
		if x == d {
			return true
		}
	}
	return false
}

// Recurrence describes how an event repeats.
type Recurrence struct {
	Frequency          Frequency   `json:"frequency" validate:"omitempty,oneof=none daily weekly biweekly monthly"`
	Weekdays           Weekdays    `json:"weekdays,omitempty" validate:"dive,min=0,max=6"`
	MonthlyMode        MonthlyMode `json:"monthly_mode,omitempty" validate:"omitempty,oneof=weekday date"`
	WeekInterval       int         `json:"week_interval,omitempty"`
	ClearRosterOnRecur bool        `json:"clear_roster_on_recur"`
	Rescheduled        bool        `json:"rescheduled"`
}

// Interval returns the effective week interval: unset means
// DefaultWeekInterval and anything else is never below 1.
func (r Recurrence) Interval() int {
	switch {
	case r.WeekInterval == 0:
		return DefaultWeekInterval
	case r.WeekInterval < 1:
		return 1
	}
	return r.WeekInterval
}
