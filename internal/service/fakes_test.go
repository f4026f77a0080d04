package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/anonsched/scheduler/internal/cache"
	"github.com/anonsched/scheduler/internal/calendar"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUsers(users ...*model.User) *memUsers {
	s := &memUsers{users: make(map[string]*model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memUsers) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
		if u.Username == user.Username {
			return repository.ErrUsernameExists
		}
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *memUsers) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *memUsers) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memUsers) GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memUsers) FindUsersByEmails(ctx context.Context, emails []string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.User
	for _, u := range s.users {
		if slices.Contains(emails, u.Email) {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memUsers) VerifyUserByToken(ctx context.Context, token string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.VerificationToken != "" && u.VerificationToken == token {
			u.IsVerified = true
			u.VerificationToken = ""
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memUsers) UpdateAvailability(ctx context.Context, userID string, profile model.AvailabilityProfile) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.ShareAvailability = profile.ShareAvailability
	u.AvailabilityWindows = slices.Clone(profile.Windows)
	c := *u
	return &c, nil
}

func (s *memUsers) SaveGoogleToken(ctx context.Context, userID string, token model.GoogleToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.GoogleAccessToken = token.AccessToken
	if token.RefreshToken != "" {
		u.GoogleRefreshToken = token.RefreshToken
	}
	u.GoogleTokenExpiry = token.Expiry
	return nil
}

func (s *memUsers) get(id string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *s.users[id]
	return &c
}

type memMeetings struct {
	mu       sync.Mutex
	meetings map[string]*model.Meeting
	// conflicts forces the next N updates to fail with a version conflict.
	conflicts int
	updates   int
}

func newMemMeetings() *memMeetings {
	return &memMeetings{meetings: make(map[string]*model.Meeting)}
}

func (s *memMeetings) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Version = 1
	s.meetings[m.ID] = m.Clone()
	return nil
}

func (s *memMeetings) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, repository.ErrMeetingNotFound
	}
	return m.Clone(), nil
}

func (s *memMeetings) ListMeetingsForUser(ctx context.Context, userID string) ([]*model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Meeting
	for _, m := range s.meetings {
		if m.IsParticipant(userID) {
			out = append(out, m.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *model.Meeting) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (s *memMeetings) UpdateMeeting(ctx context.Context, m *model.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.meetings[m.ID]
	if !ok {
		return repository.ErrMeetingNotFound
	}
	if s.conflicts > 0 {
		s.conflicts--
		return repository.ErrMeetingVersionConflict
	}
	if stored.Version != m.Version {
		return repository.ErrMeetingVersionConflict
	}
	s.updates++
	m.Version++
	m.UpdatedAt = time.Now().UTC()
	s.meetings[m.ID] = m.Clone()
	return nil
}

// modify applies fn to the stored meeting as a concurrent writer would.
func (s *memMeetings) modify(id string, fn func(m *model.Meeting)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meetings[id]
	fn(m)
	m.Version++
}

func (s *memMeetings) get(id string) *model.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meetings[id].Clone()
}

type sentMail struct {
	to, subject, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	// failFor makes Send fail for these recipients.
	failFor map[string]bool
}

func (n *fakeNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[to] {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (n *fakeNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.to)
	}
	return out
}

type patchCall struct {
	eventID    string
	start, end time.Time
}

type fakeCalendar struct {
	mu        sync.Mutex
	created   []calendar.EventInput
	patched   []patchCall
	createErr error
	patchErr  error
	busy      []calendar.TimeRange
	nextID    string
	// onCreate runs before CreateEvent returns, outside the fake's lock.
	onCreate func()
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, user *model.User, in calendar.EventInput) (string, error) {
	if c.onCreate != nil {
		c.onCreate()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return "", c.createErr
	}
	c.created = append(c.created, in)
	if c.nextID == "" {
		return "evt-1", nil
	}
	return c.nextID, nil
}

func (c *fakeCalendar) PatchEvent(ctx context.Context, user *model.User, eventID string, start, end time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.patchErr != nil {
		return c.patchErr
	}
	c.patched = append(c.patched, patchCall{eventID: eventID, start: start, end: end})
	return nil
}

func (c *fakeCalendar) FreeBusy(ctx context.Context, user *model.User, from, to time.Time) ([]calendar.TimeRange, error) {
	return c.busy, nil
}

type staticBranding string

func (b staticBranding) CompanyName(ctx context.Context) string {
	return string(b)
}

type memSettings struct {
	mu       sync.Mutex
	settings *model.AppSettings
}

func newMemSettings() *memSettings {
	return &memSettings{settings: model.DefaultAppSettings()}
}

func (s *memSettings) GetOrCreateSettings(ctx context.Context) (*model.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *s.settings
	return &c, nil
}

func (s *memSettings) UpdateSettings(ctx context.Context, in *model.AppSettings) (*model.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Branding = in.Branding
	s.settings.Preferences = in.Preferences
	s.settings.SupportEmail = in.SupportEmail
	s.settings.UpdatedAt = time.Now().UTC()
	c := *s.settings
	return &c, nil
}

func (s *memSettings) SetAdminTokenHash(ctx context.Context, hash string, at time.Time) (*model.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.AdminTokenHash != "" {
		return nil, repository.ErrAlreadyBootstrapped
	}
	s.settings.AdminTokenHash = hash
	s.settings.InitializedAt = &at
	c := *s.settings
	return &c, nil
}

type memSettingsCache struct {
	mu      sync.Mutex
	value   *model.PublicSettings
	deletes int
}

func (c *memSettingsCache) GetPublicSettings(ctx context.Context) (*model.PublicSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil {
		return nil, cache.ErrCacheMiss
	}
	v := *c.value
	return &v, nil
}

func (c *memSettingsCache) SetPublicSettings(ctx context.Context, settings model.PublicSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = &settings
	return nil
}

func (c *memSettingsCache) DeletePublicSettings(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.deletes++
	return nil
}
