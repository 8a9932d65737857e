// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
)

var runtimeNumber = regexp.MustCompile(`[\d.]+`)

// RuntimeToHours extracts the first decimal number of a free-text runtime,
// e.g. "2.5 hours" gives 2.5. Text without a number gives 0.
func RuntimeToHours(runtime string) float64 {
	match := runtimeNumber.FindString(strings.TrimSpace(runtime))
	if match == "" {
		return 0
	}
	hours, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return hours
}

// eventLocation returns the location the event's wall clock time is in. A
// named time zone wins over the quarter-hour offset.
func eventLocation(event *models.Event) *time.Location {
	if event.TimeZone != "" {
		if loc, err := time.LoadLocation(event.TimeZone); err == nil {
			return loc
		}
	}
	offset := event.UTCOffsetQuarterHours * 15 * 60
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

// startsAtOn combines a calendar date with the event's time of day and zone.
func startsAtOn(event *models.Event, date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" 15:04", date+" "+event.Time, eventLocation(event))
}

// ISODate renders an instant as YYYYMMDDTHHMM00±HHMM.
func ISODate(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%s%02d%02d", t.Format("20060102T150400"), sign, offset/3600, (offset%3600)/60)
}

// deriveSchedule recomputes the duration, start instant and ISO date of an
// event from its current inputs. An immediate event keeps its start once set.
func deriveSchedule(event *models.Event, now time.Time) error {
	event.DurationHours = RuntimeToHours(event.Runtime)
	event.WeekInterval = event.Interval()

	if event.WhenMode == models.WhenNow {
		if event.StartsAt.IsZero() {
			event.StartsAt = now.UTC()
		}
		event.ISODate = ISODate(event.StartsAt)
		return nil
	}

	start, err := startsAtOn(event, event.Date)
	if err != nil {
		return fmt.Errorf("invalid event date or time: %w", err)
	}
	event.StartsAt = start
	event.ISODate = ISODate(start)
	return nil
}
