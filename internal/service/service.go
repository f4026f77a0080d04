// Package service provides business logic for the application.
//
// Services translate repository and scheduling errors into the sentinels
// below so handlers can map them to HTTP responses with errors.Is.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/scheduling"
)

// Service errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrMeetingNotFound   = &Error{Kind: ErrNotFound, Message: "Meeting not found"}
	ErrUserNotFound      = &Error{Kind: ErrNotFound, Message: "User not found"}
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrScheduleConflict  = scheduling.ErrScheduleConflict
	ErrConflict          = errors.New("concurrent modification")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrDuplicateUser     = errors.New("duplicate user")
	ErrCalendarNotLinked = errors.New("calendar not linked")
	ErrNotConfigured     = errors.New("not configured")
)

// Error pairs a sentinel kind with a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// MessageOf returns the client-facing message carried by err, or "".
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	var ce *scheduling.ConflictError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return ""
}

// UserStore is the user persistence surface used by services.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	FindUsersByEmails(ctx context.Context, emails []string) ([]*model.User, error)
	VerifyUserByToken(ctx context.Context, token string) (*model.User, error)
	UpdateAvailability(ctx context.Context, userID string, profile model.AvailabilityProfile) (*model.User, error)
	SaveGoogleToken(ctx context.Context, userID string, token model.GoogleToken) error
}

// MeetingStore is the meeting persistence surface used by services.
type MeetingStore interface {
	CreateMeeting(ctx context.Context, m *model.Meeting) error
	GetMeeting(ctx context.Context, id string) (*model.Meeting, error)
	ListMeetingsForUser(ctx context.Context, userID string) ([]*model.Meeting, error)
	UpdateMeeting(ctx context.Context, m *model.Meeting) error
}

// SettingsStore is the settings persistence surface used by services.
type SettingsStore interface {
	GetOrCreateSettings(ctx context.Context) (*model.AppSettings, error)
	UpdateSettings(ctx context.Context, s *model.AppSettings) (*model.AppSettings, error)
	SetAdminTokenHash(ctx context.Context, hash string, at time.Time) (*model.AppSettings, error)
}

// SettingsCache caches the public settings view.
type SettingsCache interface {
	GetPublicSettings(ctx context.Context) (*model.PublicSettings, error)
	SetPublicSettings(ctx context.Context, settings model.PublicSettings) error
	DeletePublicSettings(ctx context.Context) error
}

// CompanyNamer resolves the branding name used in outgoing messages.
type CompanyNamer interface {
	CompanyName(ctx context.Context) string
}

func generateULID() string {
	return ulid.Make().String()
}
