// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/teambition/rrule-go"
)

// DateLayout is the calendar date layout used for event dates.
const DateLayout = "2006-01-02"

// maxWeekSteps bounds the biweekly walk so a bad interval can never spin.
const maxWeekSteps = 7 * 54

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// NextOccurrence computes the calendar date of the occurrence following base.
// The result is a date at midnight UTC; callers carry over the time of day.
// The second return value is false when no next occurrence exists, either
// because the event does not repeat or because the recurrence is
// misconfigured.
func NextOccurrence(base time.Time, weekdays models.Weekdays, frequency models.Frequency, monthlyMode models.MonthlyMode, weekInterval int) (time.Time, bool) {
	day := truncateDate(base)

	switch frequency {
	case models.FrequencyNone:
		return time.Time{}, false
	case models.FrequencyDaily:
		return day.AddDate(0, 0, 1), true
	case models.FrequencyWeekly:
		return nextWeekday(day, weekdays)
	case models.FrequencyBiweekly:
		return nextBiweekly(day, weekdays, weekInterval)
	case models.FrequencyMonthly:
		if monthlyMode == models.MonthlyModeDate {
			return addMonthClamped(day), true
		}
		return nextMonthlyWeekday(day)
	default:
		slog.Debug("invalid recurrence frequency", "frequency", string(frequency))
		return time.Time{}, false
	}
}

// NextOccurrenceFor computes the next occurrence for an event's recurrence,
// starting from the event's calendar date.
func NextOccurrenceFor(event *models.Event) (time.Time, bool) {
	if event == nil {
		return time.Time{}, false
	}
	base, err := time.Parse(DateLayout, event.Date)
	if err != nil {
		return time.Time{}, false
	}
	return NextOccurrence(base, event.Weekdays, event.Frequency, event.MonthlyMode, event.Interval())
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseWeekdays parses weekday names such as "monday" or "Tue".
func ParseWeekdays(names []string) (models.Weekdays, error) {
	var days models.Weekdays
	for _, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" {
			continue
		}
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if n == full || (len(n) >= 3 && strings.HasPrefix(full, n)) {
				if !days.Contains(d) {
					days = append(days, d)
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
	}
	return days, nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nextWeekday(day time.Time, weekdays models.Weekdays) (time.Time, bool) {
	if len(weekdays) == 0 {
		return time.Time{}, false
	}
	byDay := make([]rrule.Weekday, 0, len(weekdays))
	for _, d := range weekdays {
		wd, ok := rruleWeekdays[d]
		if !ok {
			return time.Time{}, false
		}
		byDay = append(byDay, wd)
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   day,
		Byweekday: byDay,
		Until:     day.AddDate(0, 0, 15),
	})
	if err != nil {
		slog.Debug("invalid weekly rule", "error", err)
		return time.Time{}, false
	}
	next := rule.After(day, false)
	if next.IsZero() {
		return time.Time{}, false
	}
	return truncateDate(next), true
}

func nextBiweekly(day time.Time, weekdays models.Weekdays, interval int) (time.Time, bool) {
	if interval < 1 {
		interval = 1
	}
	next, ok := nextWeekday(day, weekdays)
	for steps := 0; ok && isoWeekDistance(day, next) < interval; steps++ {
		if steps > maxWeekSteps {
			return time.Time{}, false
		}
		next, ok = nextWeekday(next, weekdays)
	}
	return next, ok
}

// isoWeekDistance returns the number of ISO week boundaries between a and b.
// Weeks start on Monday, and the distance is continuous across year ends.
func isoWeekDistance(a, b time.Time) int {
	days := int(mondayOf(b).Sub(mondayOf(a)).Hours() / 24)
	return days / 7
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return truncateDate(t).AddDate(0, 0, -offset)
}

func addMonthClamped(day time.Time) time.Time {
	first := time.Date(day.Year(), day.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	d := day.Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func nextMonthlyWeekday(day time.Time) (time.Time, bool) {
	ordinal := (day.Day()-1)/7 + 1
	wd := rruleWeekdays[day.Weekday()]

	next, ok := nthWeekdayAfter(day, wd.Nth(ordinal), false)
	if !ok {
		return time.Time{}, false
	}

	following := time.Date(day.Year(), day.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	if ordinal == 5 && (next.Year() != following.Year() || next.Month() != following.Month()) {
		return nthWeekdayAfter(following, wd.Nth(4), true)
	}
	return next, true
}

func nthWeekdayAfter(from time.Time, wd rrule.Weekday, inclusive bool) (time.Time, bool) {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.MONTHLY,
		Dtstart:   from,
		Byweekday: []rrule.Weekday{wd},
		Until:     from.AddDate(1, 0, 0),
	})
	if err != nil {
		slog.Debug("invalid monthly rule", "error", err)
		return time.Time{}, false
	}
	next := rule.After(from, inclusive)
	if next.IsZero() {
		return time.Time{}, false
	}
	return truncateDate(next), true
}
