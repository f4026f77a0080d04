package dto

import (
	"github.com/anonsched/scheduler/internal/model"
)

// Meeting status values.
const (
	MeetingStatusPending   = "pending"
	MeetingStatusConfirmed = "confirmed"
)

// CreateMeetingRequest represents the request body for creating a meeting.
type CreateMeetingRequest struct {
	Title          string   `json:"title"`
	AttendeeEmails []string `json:"attendee_emails"`
	MeetingLink    string   `json:"meeting_link,omitempty"`
}

// TimeRequest carries a single instant for propose and approve.
type TimeRequest struct {
	Time string `json:"time"`
}

// MoveRequest carries the new confirmed time.
type MoveRequest struct {
	NewTime string `json:"new_time"`
}

// MessageRequest carries a chat message.
type MessageRequest struct {
	Text string `json:"text"`
}

// MeetingResponse is the full meeting aggregate plus a derived status.
type MeetingResponse struct {
	*model.Meeting
	Status string `json:"status"`
}

// ToMeetingResponse converts a Meeting model.
func ToMeetingResponse(m *model.Meeting) *MeetingResponse {
	c := m.Clone()
	if c.AttendeeIDs == nil {
		c.AttendeeIDs = []string{}
	}
	if c.ProposedTimes == nil {
		c.ProposedTimes = []model.ProposedTime{}
	}
	if c.Approvals == nil {
		c.Approvals = []model.Approval{}
	}
	if c.Messages == nil {
		c.Messages = []model.Message{}
	}

	status := MeetingStatusPending
	if c.IsConfirmed() {
		status = MeetingStatusConfirmed
	}
	return &MeetingResponse{Meeting: c, Status: status}
}

// MeetingListResponse wraps a list of meetings.
type MeetingListResponse struct {
	Data  []*MeetingResponse `json:"data"`
	Total int                `json:"total"`
}

// ToMeetingListResponse converts a slice of meetings.
func ToMeetingListResponse(meetings []*model.Meeting) *MeetingListResponse {
	data := make([]*MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		data = append(data, ToMeetingResponse(m))
	}
	return &MeetingListResponse{Data: data, Total: len(data)}
}

// MeetingDetailsResponse is a meeting with resolved participants.
type MeetingDetailsResponse struct {
	Meeting            *MeetingResponse           `json:"meeting"`
	Creator            model.UserSummary          `json:"creator"`
	Attendees          []model.UserSummary        `json:"attendees"`
	SharedAvailability []model.SharedAvailability `json:"shared_availability"`
}

// ToMeetingDetailsResponse converts MeetingDetails.
func ToMeetingDetailsResponse(d *model.MeetingDetails) *MeetingDetailsResponse {
	return &MeetingDetailsResponse{
		Meeting:            ToMeetingResponse(d.Meeting),
		Creator:            d.Creator,
		Attendees:          d.Attendees,
		SharedAvailability: d.SharedAvailability,
	}
}
