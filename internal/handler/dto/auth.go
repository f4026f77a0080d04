package dto

import (
	"time"

	"github.com/anonsched/scheduler/internal/model"
)

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse reports how the account can be activated.
type RegisterResponse struct {
	Message   string `json:"message"`
	EmailSent bool   `json:"email_sent"`
	VerifyURL string `json:"verify_url,omitempty"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the signed-in user's own profile.
type UserResponse struct {
	ID                  string                     `json:"id"`
	Username            string                     `json:"username"`
	Email               string                     `json:"email"`
	ShareAvailability   bool                       `json:"share_availability"`
	AvailabilityWindows []model.AvailabilityWindow `json:"availability_windows"`
	CalendarLinked      bool                       `json:"calendar_linked"`
}

// ToUserResponse converts a User model.
func ToUserResponse(u *model.User) UserResponse {
	windows := u.AvailabilityWindows
	if windows == nil {
		windows = []model.AvailabilityWindow{}
	}
	return UserResponse{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		ShareAvailability:   u.ShareAvailability,
		AvailabilityWindows: windows,
		CalendarLinked:      u.HasLinkedCalendar(),
	}
}

// AuthURLResponse is the Google consent URL.
type AuthURLResponse struct {
	URL string `json:"url"`
}
