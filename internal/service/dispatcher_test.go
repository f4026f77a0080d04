package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonsched/scheduler/internal/metrics"
	"github.com/anonsched/scheduler/internal/model"
)

type dispatcherFixture struct {
	dispatcher *ConfirmationDispatcher
	meetings   *memMeetings
	notifier   *fakeNotifier
	calendar   *fakeCalendar
	metrics    *metrics.InMemoryRecorder
	creator    *model.User
	attendee   *model.User
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	creator := newUser("u-alice", "alice")
	creator.GoogleAccessToken = "access"
	attendee := newUser("u-bob", "bob")

	f := &dispatcherFixture{
		meetings: newMemMeetings(),
		notifier: &fakeNotifier{},
		calendar: &fakeCalendar{},
		metrics:  metrics.NewInMemory(),
		creator:  creator,
		attendee: attendee,
	}
	f.dispatcher = NewConfirmationDispatcher(DispatcherDeps{
		Meetings: f.meetings,
		Users:    newMemUsers(creator, attendee),
		Notifier: f.notifier,
		Calendar: f.calendar,
		Branding: staticBranding("Acme"),
		Logger:   discardLogger(),
		Metrics:  f.metrics,
	})
	return f
}

func (f *dispatcherFixture) confirmed(t *testing.T, at time.Time) *model.Meeting {
	t.Helper()
	m := &model.Meeting{
		ID:            "m1",
		Title:         "Planning",
		CreatorID:     f.creator.ID,
		AttendeeIDs:   []string{f.attendee.ID},
		ConfirmedTime: &at,
	}
	require.NoError(t, f.meetings.CreateMeeting(context.Background(), m))
	return f.meetings.get(m.ID)
}

func (f *dispatcherFixture) syncs(op, status string) uint64 {
	return f.metrics.Snapshot().CalendarSyncs[op+"/"+status]
}

func TestDispatch_StoresEventID(t *testing.T) {
	f := newDispatcherFixture(t)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m := f.confirmed(t, at)

	got := f.dispatcher.Dispatch(context.Background(), m)

	assert.Equal(t, "evt-1", got.CalendarEventID)
	assert.Equal(t, "evt-1", f.meetings.get(m.ID).CalendarEventID)
	assert.Equal(t, []string{f.creator.Email, f.attendee.Email}, f.notifier.recipients())
	require.Len(t, f.calendar.created, 1)
	assert.Equal(t, at, f.calendar.created[0].Start)
	assert.Empty(t, f.calendar.patched)
}

func TestDispatch_SkipsCreateWhenEventExists(t *testing.T) {
	f := newDispatcherFixture(t)
	m := f.confirmed(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	f.meetings.modify(m.ID, func(m *model.Meeting) { m.CalendarEventID = "evt-existing" })
	m = f.meetings.get(m.ID)

	got := f.dispatcher.Dispatch(context.Background(), m)

	assert.Equal(t, "evt-existing", got.CalendarEventID)
	assert.Empty(t, f.calendar.created)
	assert.Zero(t, f.syncs(metrics.CalendarCreate, metrics.StatusSuccess))
	assert.Len(t, f.notifier.recipients(), 2, "participants are still notified")
}

func TestDispatch_RetriesEventIDWriteOnVersionConflict(t *testing.T) {
	f := newDispatcherFixture(t)
	m := f.confirmed(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	f.meetings.conflicts = 1

	got := f.dispatcher.Dispatch(context.Background(), m)

	assert.Equal(t, "evt-1", got.CalendarEventID)
	assert.Equal(t, "evt-1", f.meetings.get(m.ID).CalendarEventID)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().VersionConflicts)
}

func TestDispatch_KeepsEventIDStoredByOtherWriter(t *testing.T) {
	f := newDispatcherFixture(t)
	m := f.confirmed(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	f.calendar.onCreate = func() {
		f.meetings.modify(m.ID, func(m *model.Meeting) { m.CalendarEventID = "evt-other" })
	}

	got := f.dispatcher.Dispatch(context.Background(), m)

	assert.Equal(t, "evt-other", got.CalendarEventID)
	assert.Equal(t, "evt-other", f.meetings.get(m.ID).CalendarEventID)
	assert.Empty(t, f.calendar.patched)
}

func TestDispatch_PatchesEventMovedDuringCreate(t *testing.T) {
	f := newDispatcherFixture(t)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	movedTo := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	m := f.confirmed(t, at)
	f.calendar.onCreate = func() {
		f.meetings.modify(m.ID, func(m *model.Meeting) { m.ConfirmedTime = &movedTo })
	}

	got := f.dispatcher.Dispatch(context.Background(), m)

	require.NotNil(t, got.ConfirmedTime)
	assert.Equal(t, movedTo, *got.ConfirmedTime)
	assert.Equal(t, "evt-1", f.meetings.get(m.ID).CalendarEventID)

	require.Len(t, f.calendar.created, 1)
	assert.Equal(t, at, f.calendar.created[0].Start)
	require.Len(t, f.calendar.patched, 1)
	assert.Equal(t, patchCall{eventID: "evt-1", start: movedTo, end: movedTo.Add(time.Hour)}, f.calendar.patched[0])
	assert.Equal(t, uint64(1), f.syncs(metrics.CalendarPatch, metrics.StatusSuccess))
}
