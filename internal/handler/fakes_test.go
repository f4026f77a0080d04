package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/anonsched/scheduler/internal/auth"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withUser injects an authenticated user the way the auth middleware does.
func withUser(userID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.ContextWithUserID(r.Context(), userID)))
	})
}

type meetingCall struct {
	userID, meetingID, arg string
}

type fakeMeetingAPI struct {
	calls   []meetingCall
	meeting *model.Meeting
	details *model.MeetingDetails
	view    *service.CalendarView
	ics     []byte
	created service.CreateMeetingInput
	err     error
}

func (f *fakeMeetingAPI) record(userID, meetingID, arg string) (*model.Meeting, error) {
	f.calls = append(f.calls, meetingCall{userID, meetingID, arg})
	if f.err != nil {
		return nil, f.err
	}
	return f.meeting, nil
}

func (f *fakeMeetingAPI) CreateMeeting(ctx context.Context, creatorID string, input service.CreateMeetingInput) (*model.Meeting, error) {
	f.created = input
	return f.record(creatorID, "", input.Title)
}

func (f *fakeMeetingAPI) ListMeetings(ctx context.Context, userID string) ([]*model.Meeting, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*model.Meeting{f.meeting}, nil
}

func (f *fakeMeetingAPI) GetMeeting(ctx context.Context, userID, meetingID string) (*model.MeetingDetails, error) {
	f.calls = append(f.calls, meetingCall{userID, meetingID, ""})
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

func (f *fakeMeetingAPI) ProposeTime(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error) {
	return f.record(userID, meetingID, rawTime)
}

func (f *fakeMeetingAPI) ApproveTime(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error) {
	return f.record(userID, meetingID, rawTime)
}

func (f *fakeMeetingAPI) SendMessage(ctx context.Context, userID, meetingID, text string) (*model.Meeting, error) {
	return f.record(userID, meetingID, text)
}

func (f *fakeMeetingAPI) MoveMeeting(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error) {
	return f.record(userID, meetingID, rawTime)
}

func (f *fakeMeetingAPI) ViewCalendar(ctx context.Context, userID, meetingID string) (*service.CalendarView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

func (f *fakeMeetingAPI) ExportICS(ctx context.Context, userID, meetingID string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ics, nil
}

type fakeAuthAPI struct {
	registered service.RegisterInput
	register   *service.RegisterResult
	login      *service.LoginResult
	update     service.UpdateAvailabilityInput
	profile    model.AvailabilityProfile
	authURL    string
	redirect   string
	err        error
}

func (f *fakeAuthAPI) Register(ctx context.Context, input service.RegisterInput) (*service.RegisterResult, error) {
	f.registered = input
	if f.err != nil {
		return nil, f.err
	}
	return f.register, nil
}

func (f *fakeAuthAPI) Verify(ctx context.Context, token string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.User{ID: "u1"}, nil
}

func (f *fakeAuthAPI) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.login, nil
}

func (f *fakeAuthAPI) Authenticate(raw string) (string, error) {
	if raw != "good-token" {
		return "", &service.Error{Kind: service.ErrUnauthorized, Message: "Invalid auth token"}
	}
	return "u1", nil
}

func (f *fakeAuthAPI) GetAvailability(ctx context.Context, userID string) (model.AvailabilityProfile, error) {
	return f.profile, f.err
}

func (f *fakeAuthAPI) UpdateAvailability(ctx context.Context, userID string, input service.UpdateAvailabilityInput) (*service.AvailabilityUpdate, error) {
	f.update = input
	if f.err != nil {
		return nil, f.err
	}
	return &service.AvailabilityUpdate{Profile: f.profile}, nil
}

func (f *fakeAuthAPI) GoogleAuthURL(ctx context.Context, userID string) (string, error) {
	return f.authURL, f.err
}

func (f *fakeAuthAPI) GoogleCallback(ctx context.Context, code, state string) (string, error) {
	return f.redirect, f.err
}

type fakeSettingsAPI struct {
	settings       *model.AppSettings
	setupToken     string
	requestedToken string
	adminToken     string
	update         service.UpdateSettingsInput
	err            error
}

func (f *fakeSettingsAPI) Public(ctx context.Context) (model.PublicSettings, error) {
	return f.settings.Public(), f.err
}

func (f *fakeSettingsAPI) Bootstrap(ctx context.Context, setupToken, requestedToken string) (*service.BootstrapResult, error) {
	f.setupToken, f.requestedToken = setupToken, requestedToken
	if f.err != nil {
		return nil, f.err
	}
	return &service.BootstrapResult{AdminToken: "generated", Settings: f.settings}, nil
}

func (f *fakeSettingsAPI) Get(ctx context.Context, adminToken string) (*model.AppSettings, error) {
	f.adminToken = adminToken
	return f.settings, f.err
}

func (f *fakeSettingsAPI) Update(ctx context.Context, adminToken string, input service.UpdateSettingsInput) (*model.AppSettings, error) {
	f.adminToken = adminToken
	f.update = input
	return f.settings, f.err
}

type fakeHealth struct{}

func (fakeHealth) Check(ctx context.Context) *service.HealthReport {
	return &service.HealthReport{App: service.AppName, Status: "ok", ServerTime: time.Now().UTC()}
}
