// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-event-roster-service/pkg/concurrent"
)

// memEvents is an in-memory domain.EventRepository.
type memEvents struct {
	mu        sync.Mutex
	events    map[string]*models.Event
	revisions map[string]uint64
	updateErr error
	softErr   error
	softZero  bool
	hardErr   error
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[string]*models.Event{}, revisions: map[string]uint64{}}
}

func (m *memEvents) put(e *models.Event) {
	m.events[e.UID] = e.Clone()
	m.revisions[e.UID]++
}

func (m *memEvents) Get(ctx context.Context, uid string) (*models.Event, error) {
	e, _, err := m.GetWithRevision(ctx, uid)
	return e, err
}

func (m *memEvents) GetWithRevision(_ context.Context, uid string) (*models.Event, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[uid]
	if !ok {
		return nil, 0, domain.ErrEventNotFound
	}
	return e.Clone(), m.revisions[uid], nil
}

func (m *memEvents) Upsert(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(e)
	return nil
}

func (m *memEvents) Update(_ context.Context, e *models.Event, revision uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.events[e.UID]; !ok {
		return domain.ErrEventNotFound
	}
	if m.revisions[e.UID] != revision {
		return domain.ErrRevisionMismatch
	}
	m.put(e)
	return nil
}

func (m *memEvents) UpdateFields(_ context.Context, uid string, patch models.EventPatch) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[uid]
	if !ok {
		return 0, nil
	}
	if patch.Apply(e) {
		m.revisions[uid]++
	}
	return 1, nil
}

func (m *memEvents) SoftDelete(_ context.Context, uid string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.softErr != nil {
		return 0, m.softErr
	}
	e, ok := m.events[uid]
	if !ok || m.softZero {
		return 0, nil
	}
	e.Deleted = true
	e.Frequency = models.FrequencyNone
	m.revisions[uid]++
	return 1, nil
}

func (m *memEvents) HardDelete(_ context.Context, uid string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hardErr != nil {
		return 0, m.hardErr
	}
	if _, ok := m.events[uid]; !ok {
		return 0, nil
	}
	delete(m.events, uid)
	delete(m.revisions, uid)
	return 1, nil
}

func (m *memEvents) FindMany(_ context.Context, filter models.EventFilter, limit int) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uids := make([]string, 0, len(m.events))
	for uid := range m.events {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	var out []*models.Event
	for _, uid := range uids {
		e := m.events[uid]
		if !filter.Matches(e) {
			continue
		}
		out = append(out, e.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memEvents) UpdateMany(_ context.Context, filter models.EventFilter, patch models.EventPatch) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for uid, e := range m.events {
		if filter.Matches(e) && patch.Apply(e) {
			m.revisions[uid]++
			n++
		}
	}
	return n, nil
}

func (m *memEvents) IsReady(context.Context) bool { return true }

func (m *memEvents) stored(uid string) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[uid]; ok {
		return e.Clone()
	}
	return nil
}

// memRecords is an in-memory domain.RegistrationRepository.
type memRecords struct {
	mu      sync.Mutex
	records map[string][]*models.RegistrationRecord
}

func newMemRecords() *memRecords {
	return &memRecords{records: map[string][]*models.RegistrationRecord{}}
}

func (m *memRecords) ListByEvent(_ context.Context, eventUID string) ([]*models.RegistrationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.RegistrationRecord, 0, len(m.records[eventUID]))
	for _, r := range m.records[eventUID] {
		c := *r
		out = append(out, &c)
	}
	models.SortRecords(out)
	return out, nil
}

func (m *memRecords) FetchOne(ctx context.Context, eventUID, idOrTag string) (*models.RegistrationRecord, error) {
	records, _ := m.ListByEvent(ctx, eventUID)
	for _, r := range records {
		if r.MatchesKey(idOrTag) {
			return r, nil
		}
	}
	return nil, domain.NewNotFoundError("registration record not found")
}

func (m *memRecords) Create(_ context.Context, r *models.RegistrationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *r
	m.records[r.EventUID] = append(m.records[r.EventUID], &c)
	return nil
}

func (m *memRecords) Delete(_ context.Context, eventUID, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[eventUID] = slices.DeleteFunc(m.records[eventUID], func(r *models.RegistrationRecord) bool {
		return r.RecordID == recordID
	})
	return nil
}

func (m *memRecords) DeleteAllForEvent(_ context.Context, eventUID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records[eventUID])
	delete(m.records, eventUID)
	return n, nil
}

func (m *memRecords) DeleteAllForParticipant(_ context.Context, eventUID, idOrTag string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.records[eventUID])
	m.records[eventUID] = slices.DeleteFunc(m.records[eventUID], func(r *models.RegistrationRecord) bool {
		return r.MatchesKey(idOrTag)
	})
	return before - len(m.records[eventUID]), nil
}

func (m *memRecords) IsReady(context.Context) bool { return true }

func (m *memRecords) count(eventUID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[eventUID])
}

// testEnv wires an EventService to in-memory stores and permissive mocks.
type testEnv struct {
	svc       *EventService
	events    *memEvents
	records   *memRecords
	resolver  *mocks.MockCommunityResolver
	sink      *mocks.MockAnnouncementSink
	bus       *mocks.MockNotificationBus
	dms       *mocks.MockDirectMessageSink
	config    *mocks.MockCommunityConfigProvider
	localizer *mocks.MockLocalizer
	community *models.Community
	cfg       models.CommunityConfig
	now       time.Time
}

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func testCommunity() *models.Community {
	return &models.Community{
		ID:   "c1",
		Name: "Community",
		Members: []models.Member{
			{ID: "u-owner", Tag: "owner#0001"},
			{ID: "u-a", Tag: "alice#0001", Roles: []models.Role{{ID: "r1", Name: "Player"}}},
			{ID: "u-b", Tag: "bob#0002"},
			{ID: "u-c", Tag: "carol#0003"},
			{ID: "u-d", Tag: "dave#0004"},
		},
		Channels: []models.Channel{{ID: "ch1", Name: "events"}},
	}
}

// newTestEnv builds the environment. Collaborator expectations are set by
// expect so individual tests can add stricter ones first.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		events:    newMemEvents(),
		records:   newMemRecords(),
		resolver:  &mocks.MockCommunityResolver{},
		sink:      &mocks.MockAnnouncementSink{},
		bus:       &mocks.MockNotificationBus{},
		dms:       &mocks.MockDirectMessageSink{},
		config:    &mocks.MockCommunityConfigProvider{},
		localizer: &mocks.MockLocalizer{},
		community: testCommunity(),
		cfg: models.CommunityConfig{
			Lang:            "en-US",
			DropOuts:        true,
			ReactionSignUp:  "+",
			ReactionDropOut: "-",
		},
		now: testNow,
	}
	env.svc = NewEventService(
		env.events,
		env.records,
		env.resolver,
		env.sink,
		env.bus,
		env.dms,
		env.config,
		env.localizer,
		concurrent.NewWorkerPool(4),
		ServiceConfig{},
	)
	env.svc.Now = func() time.Time { return env.now }
	return env
}

// expect registers the permissive default expectations.
func (env *testEnv) expect() *testEnv {
	env.resolver.On("ResolveCommunity", mock.Anything, "c1").Return(env.community, nil).Maybe()
	env.resolver.On("HasPostingPermission", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Maybe()
	env.config.On("CommunityConfig", mock.Anything, mock.Anything).Return(env.cfg, nil).Maybe()
	env.sink.On("Post", mock.Anything, mock.Anything, mock.Anything).Return("msg-1", nil).Maybe()
	env.sink.On("Edit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil).Maybe()
	env.sink.On("React", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	env.sink.On("Remove", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	env.bus.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	env.dms.On("SendTo", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	env.localizer.On("Rejection", mock.Anything, mock.Anything, mock.Anything).Return("rejected").Maybe()
	env.localizer.On("Text", mock.Anything, mock.Anything, mock.Anything).Return("text").Maybe()
	return env
}

// published returns the notifications published with the given action.
func (env *testEnv) published(action models.NotificationAction) []models.Notification {
	var out []models.Notification
	for _, call := range env.bus.Calls {
		if call.Method != "Publish" {
			continue
		}
		n := call.Arguments.Get(1).(models.Notification)
		if n.Action == action {
			out = append(out, n)
		}
	}
	return out
}

// sentDMs returns the direct messages of the given kind with their recipients.
func (env *testEnv) sentDMs(kind models.DirectMessageKind) []models.Participant {
	var out []models.Participant
	for _, call := range env.dms.Calls {
		if call.Method != "SendTo" {
			continue
		}
		if call.Arguments.Get(2).(models.DirectMessage).Kind == kind {
			out = append(out, call.Arguments.Get(1).(models.Participant))
		}
	}
	return out
}

func tags(roster []models.Participant) []string {
	out := make([]string, len(roster))
	for i, p := range roster {
		out[i] = strings.TrimSpace(p.Tag)
	}
	return out
}

// weeklyEvent returns a valid weekly event starting the Wednesday after
// testNow.
func weeklyEvent(roster ...models.Participant) *models.Event {
	return &models.Event{
		CommunityID: "c1",
		Title:       "Weekly game",
		Runtime:     "3 hours",
		Owner:       models.Participant{ID: "u-owner"},
		Author:      models.Participant{ID: "u-owner", Tag: "owner#0001"},
		PlayerCap:   3,
		WhenMode:    models.WhenDateTime,
		Date:        "2024-01-03",
		Time:        "18:00",
		Recurrence: models.Recurrence{
			Frequency: models.FrequencyWeekly,
			Weekdays:  models.Weekdays{time.Wednesday},
		},
		Roster: roster,
	}
}
