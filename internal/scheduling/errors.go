package scheduling

import (
	"errors"
	"strings"
)

var (
	ErrNotParticipant   = errors.New("user is not a participant of this meeting")
	ErrNotCreator       = errors.New("only the creator can move the meeting")
	ErrInvalidInstant   = errors.New("invalid instant")
	ErrScheduleConflict = errors.New("schedule conflict")
)

// ConflictError lists every participant whose availability rejects a proposal.
type ConflictError struct {
	Usernames []string
}

func (e *ConflictError) Error() string {
	return "Proposed time is outside shared availability for: " + strings.Join(e.Usernames, ", ")
}

// Is lets errors.Is(err, ErrScheduleConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrScheduleConflict
}
