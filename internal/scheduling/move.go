package scheduling

import (
	"time"

	"github.com/anonsched/scheduler/internal/model"
)

// Move overwrites the confirmed time, bypassing the approval threshold.
// Only the creator may move a meeting.
func Move(m *model.Meeting, requesterID string, at time.Time) error {
	if !m.IsCreator(requesterID) {
		return ErrNotCreator
	}

	moved := NormalizeInstant(at)
	m.ConfirmedTime = &moved
	return nil
}
