package scheduling

import (
	"time"

	"github.com/anonsched/scheduler/internal/model"
)

// ParticipantProfile is the directory view of one participant.
type ParticipantProfile struct {
	UserID       string
	Username     string
	Availability model.AvailabilityProfile
}

// AdmitProposal checks the candidate against every constraining participant
// and appends it to the proposal ledger on success.
//
// Participants are evaluated in meeting order (creator first). A participant
// missing from profiles is treated as unconstrained. Duplicate proposals are
// allowed.
func AdmitProposal(m *model.Meeting, proposerID string, at time.Time, profiles []ParticipantProfile) error {
	if !m.IsParticipant(proposerID) {
		return ErrNotParticipant
	}

	at = NormalizeInstant(at)

	byID := make(map[string]ParticipantProfile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}

	var conflicts []string
	for _, id := range m.ParticipantIDs() {
		p, ok := byID[id]
		if !ok || !p.Availability.Constrains() {
			continue
		}
		if !IsWithinAvailability(p.Availability, at) {
			conflicts = append(conflicts, p.Username)
		}
	}

	if len(conflicts) > 0 {
		return &ConflictError{Usernames: conflicts}
	}

	m.ProposedTimes = append(m.ProposedTimes, model.ProposedTime{
		Time:       at,
		ProposedBy: proposerID,
	})
	return nil
}
