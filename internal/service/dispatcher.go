package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonsched/scheduler/internal/calendar"
	"github.com/anonsched/scheduler/internal/metrics"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/notify"
	"github.com/anonsched/scheduler/internal/repository"
)

// ConfirmationDispatcher runs the side effects of a meeting becoming confirmed.
// Every failure is logged and counted; none is returned to the caller.
type ConfirmationDispatcher struct {
	meetings MeetingStore
	users    UserStore
	notifier notify.Notifier
	calendar calendar.Provider
	branding CompanyNamer
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// DispatcherDeps groups the collaborators of ConfirmationDispatcher.
type DispatcherDeps struct {
	Meetings MeetingStore
	Users    UserStore
	Notifier notify.Notifier
	Calendar calendar.Provider
	Branding CompanyNamer
	Logger   *slog.Logger
	Metrics  metrics.Recorder
}

// NewConfirmationDispatcher creates a dispatcher. Calendar may be nil.
func NewConfirmationDispatcher(deps DispatcherDeps) *ConfirmationDispatcher {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &ConfirmationDispatcher{
		meetings: deps.Meetings,
		users:    deps.Users,
		notifier: deps.Notifier,
		calendar: deps.Calendar,
		branding: deps.Branding,
		logger:   deps.Logger.With("component", "service.dispatcher"),
		metrics:  deps.Metrics,
	}
}

// Dispatch notifies every participant and creates the creator's calendar
// event. It returns the meeting as last persisted, which carries the event id
// when one was stored.
func (d *ConfirmationDispatcher) Dispatch(ctx context.Context, m *model.Meeting) *model.Meeting {
	if m.ConfirmedTime == nil {
		return m
	}

	users, err := d.users.GetUsersByIDs(ctx, m.ParticipantIDs())
	if err != nil {
		d.logger.Error("failed to load participants", "meeting_id", m.ID, "error", err)
		return m
	}
	byID := make(map[string]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	d.notifyParticipants(ctx, m, byID)
	return d.createEvent(ctx, m, byID)
}

func (d *ConfirmationDispatcher) notifyParticipants(ctx context.Context, m *model.Meeting, users map[string]*model.User) {
	link := m.MeetingLink
	if link == "" {
		link = "No link provided"
	}
	subject := "Meeting confirmed: " + m.Title
	body := fmt.Sprintf("Time: %s\nLink: %s", m.ConfirmedTime.UTC().Format(time.RFC3339), link)

	for _, id := range m.ParticipantIDs() {
		u, ok := users[id]
		if !ok {
			continue
		}
		if err := d.notifier.Send(ctx, u.Email, subject, body); err != nil {
			d.metrics.IncNotification(metrics.NotificationFailed)
			d.logger.Warn("failed to send confirmation",
				"meeting_id", m.ID,
				"recipient", u.Email,
				"error", err,
			)
		}
	}
}

func (d *ConfirmationDispatcher) createEvent(ctx context.Context, m *model.Meeting, users map[string]*model.User) *model.Meeting {
	if d.calendar == nil || m.CalendarEventID != "" {
		return m
	}
	creator, ok := users[m.CreatorID]
	if !ok || !creator.HasLinkedCalendar() {
		return m
	}

	attendees := make([]string, 0, len(m.AttendeeIDs))
	for _, id := range m.AttendeeIDs {
		if u, ok := users[id]; ok {
			attendees = append(attendees, u.Email)
		}
	}

	company := model.DefaultCompanyName
	if d.branding != nil {
		company = d.branding.CompanyName(ctx)
	}

	start := *m.ConfirmedTime
	eventID, err := d.calendar.CreateEvent(ctx, creator, calendar.EventInput{
		Summary:     m.Title,
		Description: calendar.EventDescription(m.MeetingLink, company),
		Location:    m.MeetingLink,
		Start:       start,
		End:         start.Add(model.MeetingDuration),
		Attendees:   attendees,
	})
	if err != nil {
		d.metrics.IncCalendarSync(metrics.CalendarCreate, metrics.StatusFailure)
		d.logger.Warn("failed to create calendar event", "meeting_id", m.ID, "error", err)
		return m
	}
	d.metrics.IncCalendarSync(metrics.CalendarCreate, metrics.StatusSuccess)

	stored, err := d.storeEventID(ctx, m, eventID)
	if err != nil {
		d.logger.Error("failed to store calendar event id",
			"meeting_id", m.ID,
			"event_id", eventID,
			"error", err,
		)
		return m
	}
	if stored.CalendarEventID == eventID {
		d.followMove(ctx, stored, creator, start)
	}
	return stored
}

// followMove patches the new event when the meeting was moved while it was
// being created. The move itself could not patch it without an event id.
func (d *ConfirmationDispatcher) followMove(ctx context.Context, m *model.Meeting, creator *model.User, createdAt time.Time) {
	if m.ConfirmedTime == nil || m.ConfirmedTime.Equal(createdAt) {
		return
	}
	start := *m.ConfirmedTime
	if err := d.calendar.PatchEvent(ctx, creator, m.CalendarEventID, start, start.Add(model.MeetingDuration)); err != nil {
		d.metrics.IncCalendarSync(metrics.CalendarPatch, metrics.StatusFailure)
		d.logger.Warn("failed to patch calendar event",
			"meeting_id", m.ID,
			"event_id", m.CalendarEventID,
			"error", err,
		)
		return
	}
	d.metrics.IncCalendarSync(metrics.CalendarPatch, metrics.StatusSuccess)
}

// storeEventID persists the event id with a version-checked write. If another
// writer stored an id in the meantime, that meeting is returned unchanged.
func (d *ConfirmationDispatcher) storeEventID(ctx context.Context, m *model.Meeting, eventID string) (*model.Meeting, error) {
	current := m.Clone()
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if current.CalendarEventID != "" {
			return current, nil
		}
		current.CalendarEventID = eventID

		err := d.meetings.UpdateMeeting(ctx, current)
		if err == nil {
			return current, nil
		}
		if !errors.Is(err, repository.ErrMeetingVersionConflict) {
			return nil, err
		}

		d.metrics.IncVersionConflict()
		current, err = d.meetings.GetMeeting(ctx, m.ID)
		if err != nil {
			return nil, err
		}
	}
	return nil, ErrConflict
}
