package model

import (
	"slices"
	"time"
)

// MeetingDuration is the length of calendar events created for a confirmed meeting.
const MeetingDuration = time.Hour

// ProposedTime is an immutable ledger entry.
type ProposedTime struct {
	Time       time.Time `json:"time"`
	ProposedBy string    `json:"proposed_by"`
}

// Approval tracks who approved one exact instant.
// ApprovedBy is an ordered set of user IDs.
type Approval struct {
	Time       time.Time `json:"time"`
	ApprovedBy []string  `json:"approved_by"`
}

// HasApproved reports whether userID already voted for this instant.
func (a *Approval) HasApproved(userID string) bool {
	return slices.Contains(a.ApprovedBy, userID)
}

// Message is a chat entry on a meeting.
type Message struct {
	UserID string    `json:"user_id"`
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
}

// Meeting is the aggregate root for time negotiation.
// Version is bumped on every write and checked for optimistic concurrency.
type Meeting struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	CreatorID       string         `json:"creator_id"`
	AttendeeIDs     []string       `json:"attendee_ids"`
	MeetingLink     string         `json:"meeting_link,omitempty"`
	ProposedTimes   []ProposedTime `json:"proposed_times"`
	Approvals       []Approval     `json:"approvals"`
	Messages        []Message      `json:"messages"`
	ConfirmedTime   *time.Time     `json:"confirmed_time,omitempty"`
	CalendarEventID string         `json:"calendar_event_id,omitempty"`
	Version         int64          `json:"version"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ParticipantIDs returns the creator followed by attendees.
func (m *Meeting) ParticipantIDs() []string {
	ids := make([]string, 0, len(m.AttendeeIDs)+1)
	ids = append(ids, m.CreatorID)
	for _, id := range m.AttendeeIDs {
		if id != m.CreatorID {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsParticipant reports whether userID is the creator or an attendee.
func (m *Meeting) IsParticipant(userID string) bool {
	return m.CreatorID == userID || slices.Contains(m.AttendeeIDs, userID)
}

// IsCreator reports whether userID created the meeting.
func (m *Meeting) IsCreator(userID string) bool {
	return m.CreatorID == userID
}

// RequiredApprovals is the unanimity threshold: creator plus every attendee.
func (m *Meeting) RequiredApprovals() int {
	return len(m.AttendeeIDs) + 1
}

// IsConfirmed returns true once a confirmed time is set.
func (m *Meeting) IsConfirmed() bool {
	return m.ConfirmedTime != nil
}

// FindApproval returns the approval record for an exact instant, or nil.
func (m *Meeting) FindApproval(t time.Time) *Approval {
	for i := range m.Approvals {
		if m.Approvals[i].Time.Equal(t) {
			return &m.Approvals[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (m *Meeting) Clone() *Meeting {
	c := *m
	c.AttendeeIDs = slices.Clone(m.AttendeeIDs)
	c.ProposedTimes = slices.Clone(m.ProposedTimes)
	c.Messages = slices.Clone(m.Messages)
	c.Approvals = make([]Approval, len(m.Approvals))
	for i, a := range m.Approvals {
		c.Approvals[i] = Approval{Time: a.Time, ApprovedBy: slices.Clone(a.ApprovedBy)}
	}
	if m.ConfirmedTime != nil {
		t := *m.ConfirmedTime
		c.ConfirmedTime = &t
	}
	return &c
}

// SharedAvailability describes a participant whose windows are visible to others.
type SharedAvailability struct {
	UserID              string               `json:"user_id"`
	Username            string               `json:"username"`
	Email               string               `json:"email"`
	AvailabilityWindows []AvailabilityWindow `json:"availability_windows"`
}

// MeetingDetails is a meeting together with participant data resolved for display.
type MeetingDetails struct {
	Meeting            *Meeting             `json:"meeting"`
	Creator            UserSummary          `json:"creator"`
	Attendees          []UserSummary        `json:"attendees"`
	SharedAvailability []SharedAvailability `json:"shared_availability"`
}
