package middleware

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
)

// Validation limits.
const (
	// MaxMeetingLinkLength is the maximum length for meeting links.
	MaxMeetingLinkLength = 2048

	// MaxUsernameLength is the maximum length for usernames.
	MaxUsernameLength = 64

	// MaxEmailLength is the maximum length for email addresses.
	MaxEmailLength = 254
)

// Validation errors.
var (
	ErrMeetingLinkTooLong = errors.New("meeting link exceeds maximum length")
	ErrMeetingLinkInvalid = errors.New("meeting link must be an http or https URL")
	ErrMeetingLinkUnsafe  = errors.New("meeting link uses unsafe scheme")
	ErrUsernameTooLong    = errors.New("username exceeds maximum length")
	ErrUsernameInvalid    = errors.New("username contains control or whitespace characters")
	ErrEmailInvalid       = errors.New("email address is invalid")
)

// ValidateMeetingLink validates the optional link stored on a meeting.
// It ends up in notification bodies and calendar events.
func ValidateMeetingLink(link string) error {
	if link == "" {
		return nil
	}

	if len(link) > MaxMeetingLinkLength {
		return ErrMeetingLinkTooLong
	}

	lower := strings.ToLower(strings.TrimSpace(link))
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ErrMeetingLinkInvalid
	}

	// Block dangerous schemes smuggled into the rest of the URL
	for _, scheme := range []string{"javascript:", "data:", "vbscript:", "file:"} {
		if strings.Contains(lower, scheme) {
			return ErrMeetingLinkUnsafe
		}
	}

	return nil
}

// ValidateUsername rejects usernames that would render ambiguously in
// conflict messages. Empty is left to the service's required-field check.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}

	if len(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}

	for _, r := range username {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return ErrUsernameInvalid
		}
	}

	return nil
}

// ValidateEmail checks that email is a bare address.
// Empty is left to the service's required-field check.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	if len(email) > MaxEmailLength {
		return ErrEmailInvalid
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrEmailInvalid
	}

	return nil
}
