package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/anonsched/scheduler/internal/model"
)

// PrimaryCalendarID addresses the user's default calendar.
const PrimaryCalendarID = "primary"

// EventInput describes an event to create.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// TimeRange is a half-open busy interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Provider is the calendar surface the services depend on.
type Provider interface {
	CreateEvent(ctx context.Context, user *model.User, in EventInput) (string, error)
	PatchEvent(ctx context.Context, user *model.User, eventID string, start, end time.Time) error
	FreeBusy(ctx context.Context, user *model.User, from, to time.Time) ([]TimeRange, error)
}

// TokenStore persists tokens refreshed during API calls.
type TokenStore interface {
	SaveGoogleToken(ctx context.Context, userID string, token model.GoogleToken) error
}

// GoogleCalendar talks to the Google Calendar v3 API on behalf of users.
type GoogleCalendar struct {
	oauth    *OAuth
	tokens   TokenStore
	logger   *slog.Logger
	endpoint string
}

// NewGoogleCalendar creates a Google-backed Provider.
func NewGoogleCalendar(oauth *OAuth, tokens TokenStore, logger *slog.Logger) *GoogleCalendar {
	return &GoogleCalendar{
		oauth:  oauth,
		tokens: tokens,
		logger: logger.With("component", "calendar.google"),
	}
}

// CreateEvent inserts an event on the user's primary calendar and returns its id.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, user *model.User, in EventInput) (string, error) {
	svc, err := g.service(ctx, user)
	if err != nil {
		return "", err
	}

	event := &gcal.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       eventTime(in.Start),
		End:         eventTime(in.End),
	}
	for _, email := range in.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := svc.Events.Insert(PrimaryCalendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return created.Id, nil
}

// PatchEvent moves an existing event to [start, end).
func (g *GoogleCalendar) PatchEvent(ctx context.Context, user *model.User, eventID string, start, end time.Time) error {
	svc, err := g.service(ctx, user)
	if err != nil {
		return err
	}

	patch := &gcal.Event{
		Start: eventTime(start),
		End:   eventTime(end),
	}
	if _, err := svc.Events.Patch(PrimaryCalendarID, eventID, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch event: %w", err)
	}
	return nil
}

// FreeBusy returns busy intervals on the user's primary calendar.
func (g *GoogleCalendar) FreeBusy(ctx context.Context, user *model.User, from, to time.Time) ([]TimeRange, error) {
	svc, err := g.service(ctx, user)
	if err != nil {
		return nil, err
	}

	req := &gcal.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: PrimaryCalendarID}},
	}
	res, err := svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("query freebusy: %w", err)
	}

	busy := []TimeRange{}
	if cal, ok := res.Calendars[PrimaryCalendarID]; ok {
		for _, b := range cal.Busy {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				continue
			}
			busy = append(busy, TimeRange{Start: start.UTC(), End: end.UTC()})
		}
	}
	return busy, nil
}

func (g *GoogleCalendar) service(ctx context.Context, user *model.User) (*gcal.Service, error) {
	if user == nil || !user.HasLinkedCalendar() {
		return nil, ErrNotLinked
	}

	ts := &persistingTokenSource{
		base:   g.oauth.config.TokenSource(ctx, toOAuthToken(user)),
		last:   user.GoogleAccessToken,
		userID: user.ID,
		store:  g.tokens,
		logger: g.logger,
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

func eventTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.UTC().Format(time.RFC3339),
		TimeZone: "UTC",
	}
}

// persistingTokenSource saves a token whenever the access token changes.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	store  TokenStore
	userID string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()

	if changed && s.store != nil {
		if err := s.store.SaveGoogleToken(context.Background(), s.userID, fromOAuthToken(tok)); err != nil {
			s.logger.Warn("failed to persist refreshed token", "user_id", s.userID, "error", err)
		}
	}
	return tok, nil
}
