package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anonsched/scheduler/internal/calendar"
	"github.com/anonsched/scheduler/internal/metrics"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/notify"
	"github.com/anonsched/scheduler/internal/repository"
	"github.com/anonsched/scheduler/internal/scheduling"
)

const (
	maxWriteAttempts   = 3
	maxMessageLength   = 2000
	calendarViewWindow = 30 * 24 * time.Hour
)

// MeetingService handles meeting negotiation.
type MeetingService struct {
	meetings   MeetingStore
	users      UserStore
	notifier   notify.Notifier
	calendar   calendar.Provider
	branding   CompanyNamer
	dispatcher *ConfirmationDispatcher
	logger     *slog.Logger
	metrics    metrics.Recorder
	now        func() time.Time
}

// MeetingDeps groups the collaborators of MeetingService.
// Calendar may be nil when Google is not configured.
type MeetingDeps struct {
	Meetings MeetingStore
	Users    UserStore
	Notifier notify.Notifier
	Calendar calendar.Provider
	Branding CompanyNamer
	Logger   *slog.Logger
	Metrics  metrics.Recorder
}

// NewMeetingService creates a new MeetingService.
func NewMeetingService(deps MeetingDeps) *MeetingService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &MeetingService{
		meetings: deps.Meetings,
		users:    deps.Users,
		notifier: deps.Notifier,
		calendar: deps.Calendar,
		branding: deps.Branding,
		logger:   deps.Logger.With("component", "service.meeting"),
		metrics:  deps.Metrics,
		now:      time.Now,
	}
	s.dispatcher = NewConfirmationDispatcher(DispatcherDeps{
		Meetings: deps.Meetings,
		Users:    deps.Users,
		Notifier: deps.Notifier,
		Calendar: deps.Calendar,
		Branding: deps.Branding,
		Logger:   deps.Logger,
		Metrics:  deps.Metrics,
	})
	return s
}

// CreateMeetingInput defines input for creating a meeting.
type CreateMeetingInput struct {
	Title          string
	AttendeeEmails []string
	MeetingLink    string
}

// CreateMeeting creates a meeting and invites the attendees that have accounts.
// Unknown emails are ignored and the creator is never an attendee.
func (s *MeetingService) CreateMeeting(ctx context.Context, creatorID string, input CreateMeetingInput) (*model.Meeting, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, newError(ErrInvalidInput, "Meeting title is required")
	}

	attendees, err := s.resolveAttendees(ctx, creatorID, input.AttendeeEmails)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := &model.Meeting{
		ID:          generateULID(),
		Title:       title,
		CreatorID:   creatorID,
		AttendeeIDs: make([]string, 0, len(attendees)),
		MeetingLink: strings.TrimSpace(input.MeetingLink),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, u := range attendees {
		m.AttendeeIDs = append(m.AttendeeIDs, u.ID)
	}

	if err := s.meetings.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	s.metrics.IncMeetingCreated()

	company := s.companyName(ctx)
	for _, u := range attendees {
		subject := "New meeting invitation: " + m.Title
		body := fmt.Sprintf("You were invited to a meeting in %s.\nMeeting ID: %s", company, m.ID)
		if err := s.notifier.Send(ctx, u.Email, subject, body); err != nil {
			s.metrics.IncNotification(metrics.NotificationFailed)
			s.logger.Warn("failed to send invitation",
				"meeting_id", m.ID,
				"recipient", u.Email,
				"error", err,
			)
		}
	}

	return m, nil
}

func (s *MeetingService) resolveAttendees(ctx context.Context, creatorID string, emails []string) ([]*model.User, error) {
	seen := make(map[string]bool, len(emails))
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		normalized = append(normalized, e)
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	found, err := s.users.FindUsersByEmails(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attendees: %w", err)
	}

	byEmail := make(map[string]*model.User, len(found))
	for _, u := range found {
		byEmail[strings.ToLower(u.Email)] = u
	}

	attendees := make([]*model.User, 0, len(found))
	added := make(map[string]bool, len(found))
	for _, e := range normalized {
		u, ok := byEmail[e]
		if !ok || u.ID == creatorID || added[u.ID] {
			continue
		}
		added[u.ID] = true
		attendees = append(attendees, u)
	}
	return attendees, nil
}

// ListMeetings returns the meetings the user created or attends, most recently updated first.
func (s *MeetingService) ListMeetings(ctx context.Context, userID string) ([]*model.Meeting, error) {
	meetings, err := s.meetings.ListMeetingsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// GetMeeting returns the meeting with its participants and their shared availability.
func (s *MeetingService) GetMeeting(ctx context.Context, userID, meetingID string) (*model.MeetingDetails, error) {
	m, err := s.loadForParticipant(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}

	users, err := s.participants(ctx, m)
	if err != nil {
		return nil, err
	}

	details := &model.MeetingDetails{
		Meeting:            m,
		Attendees:          make([]model.UserSummary, 0, len(m.AttendeeIDs)),
		SharedAvailability: []model.SharedAvailability{},
	}
	if creator, ok := users[m.CreatorID]; ok {
		details.Creator = creator.Summary()
	} else {
		details.Creator = model.UserSummary{ID: m.CreatorID}
	}
	for _, id := range m.AttendeeIDs {
		if u, ok := users[id]; ok {
			details.Attendees = append(details.Attendees, u.Summary())
		}
	}
	for _, id := range m.ParticipantIDs() {
		u, ok := users[id]
		if !ok || !u.Availability().Constrains() {
			continue
		}
		details.SharedAvailability = append(details.SharedAvailability, model.SharedAvailability{
			UserID:              u.ID,
			Username:            u.Username,
			Email:               u.Email,
			AvailabilityWindows: u.AvailabilityWindows,
		})
	}

	return details, nil
}

// ProposeTime adds a candidate instant after checking shared availability.
func (s *MeetingService) ProposeTime(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error) {
	at, err := scheduling.ParseInstant(rawTime)
	if err != nil {
		return nil, newError(ErrInvalidInput, "Invalid proposed time")
	}

	m, err := s.mutateMeeting(ctx, meetingID, func(m *model.Meeting) error {
		if !m.IsParticipant(userID) {
			return scheduling.ErrNotParticipant
		}
		users, err := s.participants(ctx, m)
		if err != nil {
			return err
		}
		profiles := make([]scheduling.ParticipantProfile, 0, len(users))
		for _, u := range users {
			profiles = append(profiles, scheduling.ParticipantProfile{
				UserID:       u.ID,
				Username:     u.Username,
				Availability: u.Availability(),
			})
		}
		return scheduling.AdmitProposal(m, userID, at, profiles)
	})
	if err != nil {
		if errors.Is(err, ErrScheduleConflict) {
			s.metrics.IncProposal(metrics.ProposalConflict)
		}
		return nil, err
	}

	s.metrics.IncProposal(metrics.ProposalAccepted)
	return m, nil
}

// ApproveTime records the caller's vote. When the vote completes the
// threshold the confirmation side effects run after the write commits.
func (s *MeetingService) ApproveTime(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error) {
	at, err := scheduling.ParseInstant(rawTime)
	if err != nil {
		return nil, newError(ErrInvalidInput, "Invalid approval time")
	}

	var result scheduling.ApproveResult
	m, err := s.mutateMeeting(ctx, meetingID, func(m *model.Meeting) error {
		var err error
		result, err = scheduling.Approve(m, userID, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncApproval()

	if result.Confirmed {
		s.metrics.IncConfirmation()
		s.logger.Info("meeting confirmed", "meeting_id", m.ID, "confirmed_time", m.ConfirmedTime)
		m = s.dispatcher.Dispatch(context.WithoutCancel(ctx), m)
	}

	return m, nil
}

// SendMessage appends a chat message from a participant.
func (s *MeetingService) SendMessage(ctx context.Context, userID, meetingID, text string) (*model.Meeting, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, newError(ErrInvalidInput, "Message text is required")
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return nil, newError(ErrInvalidInput, fmt.Sprintf("Message text must be at most %d characters", maxMessageLength))
	}

	return s.mutateMeeting(ctx, meetingID, func(m *model.Meeting) error {
		if !m.IsParticipant(userID) {
			return scheduling.ErrNotParticipant
		}
		m.Messages = append(m.Messages, model.Message{
			UserID: userID,
			Text:   text,
			Date:   s.now().UTC(),
		})
		return nil
	})
}

// MoveMeeting lets the creator overwrite the confirmed time. The local write
// commits first; the external event is then patched on a best-effort basis.
func (s *MeetingService) MoveMeeting(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error) {
	at, err := scheduling.ParseInstant(rawTime)
	if err != nil {
		return nil, newError(ErrInvalidInput, "Invalid new time")
	}

	m, err := s.mutateMeeting(ctx, meetingID, func(m *model.Meeting) error {
		if !m.IsParticipant(userID) {
			return scheduling.ErrNotParticipant
		}
		return scheduling.Move(m, userID, at)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncMove()

	if m.CalendarEventID != "" && s.calendar != nil {
		s.patchEvent(context.WithoutCancel(ctx), m)
	}

	return m, nil
}

func (s *MeetingService) patchEvent(ctx context.Context, m *model.Meeting) {
	creator, err := s.users.GetUserByID(ctx, m.CreatorID)
	if err != nil {
		s.logger.Warn("failed to load creator for event patch", "meeting_id", m.ID, "error", err)
		return
	}
	if !creator.HasLinkedCalendar() {
		return
	}

	start := *m.ConfirmedTime
	if err := s.calendar.PatchEvent(ctx, creator, m.CalendarEventID, start, start.Add(model.MeetingDuration)); err != nil {
		s.metrics.IncCalendarSync(metrics.CalendarPatch, metrics.StatusFailure)
		s.logger.Warn("failed to patch calendar event",
			"meeting_id", m.ID,
			"event_id", m.CalendarEventID,
			"error", err,
		)
		return
	}
	s.metrics.IncCalendarSync(metrics.CalendarPatch, metrics.StatusSuccess)
}

// CalendarView is the caller's busy time over the look-ahead window.
type CalendarView struct {
	MeetingID string               `json:"meeting_id"`
	From      time.Time            `json:"from"`
	To        time.Time            `json:"to"`
	Busy      []calendar.TimeRange `json:"busy"`
}

// ViewCalendar returns the caller's free/busy for the next 30 days.
func (s *MeetingService) ViewCalendar(ctx context.Context, userID, meetingID string) (*CalendarView, error) {
	m, err := s.loadForParticipant(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if s.calendar == nil || !user.HasLinkedCalendar() {
		return nil, newError(ErrCalendarNotLinked, "Connect Google Calendar first")
	}

	from := s.now().UTC().Truncate(time.Second)
	to := from.Add(calendarViewWindow)
	busy, err := s.calendar.FreeBusy(ctx, user, from, to)
	if err != nil {
		if errors.Is(err, calendar.ErrNotLinked) {
			return nil, newError(ErrCalendarNotLinked, "Connect Google Calendar first")
		}
		return nil, fmt.Errorf("failed to fetch calendar: %w", err)
	}
	if busy == nil {
		busy = []calendar.TimeRange{}
	}

	return &CalendarView{MeetingID: m.ID, From: from, To: to, Busy: busy}, nil
}

// ExportICS renders a confirmed meeting as an iCalendar document.
func (s *MeetingService) ExportICS(ctx context.Context, userID, meetingID string) ([]byte, error) {
	m, err := s.loadForParticipant(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	if !m.IsConfirmed() {
		return nil, newError(ErrInvalidInput, "Meeting has no confirmed time")
	}

	users, err := s.participants(ctx, m)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(users))
	for _, id := range m.ParticipantIDs() {
		if u, ok := users[id]; ok {
			emails = append(emails, u.Email)
		}
	}

	data, err := calendar.EncodeICS(m, emails, calendar.DefaultProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return data, nil
}

// mutateMeeting loads the meeting, applies fn and writes it back. When another
// writer bumped the version first the meeting is reloaded and fn re-applied.
func (s *MeetingService) mutateMeeting(ctx context.Context, meetingID string, fn func(m *model.Meeting) error) (*model.Meeting, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		m, err := s.loadMeeting(ctx, meetingID)
		if err != nil {
			return nil, err
		}

		if err := fn(m); err != nil {
			return nil, translateCoreError(err)
		}

		err = s.meetings.UpdateMeeting(ctx, m)
		if err == nil {
			return m, nil
		}
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return nil, ErrMeetingNotFound
		}
		if !errors.Is(err, repository.ErrMeetingVersionConflict) {
			return nil, fmt.Errorf("failed to update meeting: %w", err)
		}

		s.metrics.IncVersionConflict()
		s.logger.Debug("meeting version conflict", "meeting_id", meetingID, "attempt", attempt)
	}

	return nil, newError(ErrConflict, "Meeting was modified concurrently, please retry")
}

func (s *MeetingService) loadMeeting(ctx context.Context, meetingID string) (*model.Meeting, error) {
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return m, nil
}

func (s *MeetingService) loadForParticipant(ctx context.Context, userID, meetingID string) (*model.Meeting, error) {
	m, err := s.loadMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(userID) {
		return nil, translateCoreError(scheduling.ErrNotParticipant)
	}
	return m, nil
}

// participants returns the participant users keyed by id. Users that no
// longer exist are absent from the map.
func (s *MeetingService) participants(ctx context.Context, m *model.Meeting) (map[string]*model.User, error) {
	users, err := s.users.GetUsersByIDs(ctx, m.ParticipantIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	byID := make(map[string]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func (s *MeetingService) companyName(ctx context.Context) string {
	if s.branding == nil {
		return model.DefaultCompanyName
	}
	return s.branding.CompanyName(ctx)
}

func translateCoreError(err error) error {
	switch {
	case errors.Is(err, scheduling.ErrNotParticipant):
		return newError(ErrForbidden, "Not authorized")
	case errors.Is(err, scheduling.ErrNotCreator):
		return newError(ErrForbidden, "Only creator can move meeting")
	case errors.Is(err, scheduling.ErrInvalidInstant):
		return newError(ErrInvalidInput, "Invalid time")
	default:
		return err
	}
}
