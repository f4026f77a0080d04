// Package model defines domain entities for the application.
package model

import "time"

// AvailabilityWindow is a weekly UTC window on one day.
// StartTime and EndTime are zero-padded 24h "HH:MM" strings with StartTime < EndTime.
type AvailabilityWindow struct {
	DayOfWeek int    `json:"day_of_week"` // 0 = Sunday
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AvailabilityProfile is the part of a user that constrains proposals.
type AvailabilityProfile struct {
	ShareAvailability bool                 `json:"share_availability"`
	Windows           []AvailabilityWindow `json:"availability_windows"`
}

// Constrains reports whether the profile can ever block a proposal.
// Sharing disabled or no declared windows means always available.
func (p AvailabilityProfile) Constrains() bool {
	return p.ShareAvailability && len(p.Windows) > 0
}

// User represents a registered account.
type User struct {
	ID                  string               `json:"id"`
	Username            string               `json:"username"`
	Email               string               `json:"email"`
	PasswordHash        string               `json:"-"`
	IsVerified          bool                 `json:"is_verified"`
	VerificationToken   string               `json:"-"`
	GoogleAccessToken   string               `json:"-"`
	GoogleRefreshToken  string               `json:"-"`
	GoogleTokenExpiry   *time.Time           `json:"-"`
	ShareAvailability   bool                 `json:"share_availability"`
	AvailabilityWindows []AvailabilityWindow `json:"availability_windows"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// Availability returns the user's availability profile.
func (u *User) Availability() AvailabilityProfile {
	return AvailabilityProfile{
		ShareAvailability: u.ShareAvailability,
		Windows:           u.AvailabilityWindows,
	}
}

// HasLinkedCalendar returns true if the user has connected Google Calendar.
func (u *User) HasLinkedCalendar() bool {
	return u.GoogleAccessToken != ""
}

// UserSummary is the public view of a user embedded in meeting responses.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Summary returns the public view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// GoogleToken holds OAuth credentials for a linked Google account.
type GoogleToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
}
