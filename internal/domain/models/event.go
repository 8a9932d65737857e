// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// WhenMode tells whether an event has a fixed schedule or starts immediately.
type WhenMode string

const (
	WhenDateTime WhenMode = "datetime"
	WhenNow      WhenMode = "now"
)

// SignupMethod tells how participants sign up for an event.
type SignupMethod string

const (
	SignupAutomated SignupMethod = "automated"
	SignupCustom    SignupMethod = "custom"
)

// Reminder options, in minutes before the start of the event.
const (
	ReminderNone    = 0
	Reminder15Min   = 15
	Reminder30Min   = 30
	Reminder60Min   = 60
	Reminder6Hours  = 360
	Reminder12Hours = 720
	Reminder24Hours = 1440
)

// ReminderOptions lists the reminder offsets an organizer can pick from.
var ReminderOptions = []int{Reminder15Min, Reminder30Min, Reminder60Min, Reminder6Hours, Reminder12Hours, Reminder24Hours}

// Event is a schedulable group event with a bounded roster.
type Event struct {
	UID         string `json:"uid"`
	CommunityID string `json:"community_id" validate:"required"`
	ChannelID   string `json:"channel_id,omitempty"`
	TemplateID  string `json:"template_id,omitempty"`

	Title       string `json:"title" validate:"required,max=256"`
	Description string `json:"description,omitempty"`
	Where       string `json:"where,omitempty"`
	Runtime     string `json:"runtime,omitempty"`

	Owner  Participant `json:"owner"`
	Author Participant `json:"author"`

	PlayerCap       int  `json:"player_cap" validate:"min=1"`
	DisableWaitlist bool `json:"disable_waitlist"`

	WhenMode              WhenMode `json:"when_mode" validate:"required,oneof=datetime now"`
	Date                  string   `json:"date,omitempty" validate:"required_if=WhenMode datetime,omitempty,datetime=2006-01-02"`
	Time                  string   `json:"time,omitempty" validate:"required_if=WhenMode datetime,omitempty,datetime=15:04"`
	UTCOffsetQuarterHours int      `json:"utc_offset_quarter_hours" validate:"min=-48,max=56"`
	TimeZone              string   `json:"time_zone,omitempty" validate:"omitempty,timezone"`

	// Derived on every save.
	DurationHours float64   `json:"duration_hours"`
	StartsAt      time.Time `json:"starts_at"`
	ISODate       string    `json:"iso_date,omitempty"`

	Recurrence

	Roster                 []Participant `json:"roster"`
	AllowSignupsAfterStart bool          `json:"allow_signups_after_start"`
	HideSchedule           bool          `json:"hide_schedule"`

	Method             SignupMethod `json:"method,omitempty" validate:"omitempty,oneof=automated custom"`
	CustomInstructions string       `json:"custom_instructions,omitempty"`

	ReminderMinutes    int    `json:"reminder_minutes" validate:"oneof=0 15 30 60 360 720 1440"`
	Reminded           bool   `json:"reminded"`
	ReminderMessageRef string `json:"reminder_message_ref,omitempty"`
	AnnouncementRef    string `json:"announcement_ref,omitempty"`
	OrganizerDMRef     string `json:"organizer_dm_ref,omitempty"`

	Deleted   bool      `json:"deleted"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Roster = append([]Participant(nil), e.Roster...)
	c.Weekdays = append(Weekdays(nil), e.Weekdays...)
	return &c
}

// EndsAt returns the instant the event is over.
func (e *Event) EndsAt() time.Time {
	return e.StartsAt.Add(time.Duration(e.DurationHours * float64(time.Hour)))
}

// AutomatedSignups reports whether participants sign up through reactions.
func (e *Event) AutomatedSignups() bool {
	return e.Method == "" || e.Method == SignupAutomated
}

// EventPatch is a partial update applied by the event store. Nil fields are
// left untouched.
type EventPatch struct {
	Frequency          *Frequency `json:"frequency,omitempty"`
	Deleted            *bool      `json:"deleted,omitempty"`
	Rescheduled        *bool      `json:"rescheduled,omitempty"`
	AnnouncementRef    *string    `json:"announcement_ref,omitempty"`
	ReminderMessageRef *string    `json:"reminder_message_ref,omitempty"`
	OrganizerDMRef     *string    `json:"organizer_dm_ref,omitempty"`
	Reminded           *bool      `json:"reminded,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Frequency == nil && p.Deleted == nil && p.Rescheduled == nil &&
		p.AnnouncementRef == nil && p.ReminderMessageRef == nil &&
		p.OrganizerDMRef == nil && p.Reminded == nil
}

// Apply copies the set fields of the patch onto e and reports whether any
// value changed.
func (p EventPatch) Apply(e *Event) bool {
	changed := false
	if p.Frequency != nil && e.Frequency != *p.Frequency {
		e.Frequency, changed = *p.Frequency, true
	}
	if p.Deleted != nil && e.Deleted != *p.Deleted {
		e.Deleted, changed = *p.Deleted, true
	}
	if p.Rescheduled != nil && e.Rescheduled != *p.Rescheduled {
		e.Rescheduled, changed = *p.Rescheduled, true
	}
	if p.AnnouncementRef != nil && e.AnnouncementRef != *p.AnnouncementRef {
		e.AnnouncementRef, changed = *p.AnnouncementRef, true
	}
	if p.ReminderMessageRef != nil && e.ReminderMessageRef != *p.ReminderMessageRef {
		e.ReminderMessageRef, changed = *p.ReminderMessageRef, true
	}
	if p.OrganizerDMRef != nil && e.OrganizerDMRef != *p.OrganizerDMRef {
		e.OrganizerDMRef, changed = *p.OrganizerDMRef, true
	}
	if p.Reminded != nil && e.Reminded != *p.Reminded {
		e.Reminded, changed = *p.Reminded, true
	}
	return changed
}

// EventFilter selects events in FindMany and UpdateMany. Empty fields match
// everything.
type EventFilter struct {
	CommunityID    string
	ChannelID      string
	OwnerID        string
	RecurringOnly  bool
	IncludeDeleted bool
	OnlyDeleted    bool
}

// Matches reports whether e satisfies the filter.
func (f EventFilter) Matches(e *Event) bool {
	if e == nil {
		return false
	}
	if f.CommunityID != "" && e.CommunityID != f.CommunityID {
		return false
	}
	if f.ChannelID != "" && e.ChannelID != f.ChannelID {
		return false
	}
	if f.OwnerID != "" && e.Owner.ID != f.OwnerID {
		return false
	}
	if f.RecurringOnly && !e.Frequency.Repeats() {
		return false
	}
	if f.OnlyDeleted {
		return e.Deleted
	}
	if e.Deleted && !f.IncludeDeleted {
		return false
	}
	return true
}
