package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/anonsched/scheduler/internal/auth"
	"github.com/anonsched/scheduler/internal/handler/dto"
	"github.com/anonsched/scheduler/internal/middleware"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/service"
)

// MeetingAPI is the meeting surface served over HTTP.
type MeetingAPI interface {
	CreateMeeting(ctx context.Context, creatorID string, input service.CreateMeetingInput) (*model.Meeting, error)
	ListMeetings(ctx context.Context, userID string) ([]*model.Meeting, error)
	GetMeeting(ctx context.Context, userID, meetingID string) (*model.MeetingDetails, error)
	ProposeTime(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error)
	ApproveTime(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error)
	SendMessage(ctx context.Context, userID, meetingID, text string) (*model.Meeting, error)
	MoveMeeting(ctx context.Context, userID, meetingID, rawTime string) (*model.Meeting, error)
	ViewCalendar(ctx context.Context, userID, meetingID string) (*service.CalendarView, error)
	ExportICS(ctx context.Context, userID, meetingID string) ([]byte, error)
}

// MeetingHandler handles HTTP requests for meeting operations.
// Every route requires an authenticated user.
type MeetingHandler struct {
	svc    MeetingAPI
	logger *slog.Logger
}

// NewMeetingHandler creates a new MeetingHandler.
func NewMeetingHandler(svc MeetingAPI, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{
		svc:    svc,
		logger: logger,
	}
}

// Routes mounts the meeting routes.
func (h *MeetingHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/propose", h.Propose)
		r.Post("/approve", h.Approve)
		r.Post("/messages", h.Message)
		r.Post("/move", h.Move)
		r.Get("/calendar", h.Calendar)
		r.Get("/ics", h.ICS)
	})
}

// Create handles POST /api/v1/meetings.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMeetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMeetingLink(req.MeetingLink); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid meeting link: "+err.Error())
		return
	}

	userID := auth.MustUserIDFromContext(r.Context())
	m, err := h.svc.CreateMeeting(r.Context(), userID, service.CreateMeetingInput{
		Title:          req.Title,
		AttendeeEmails: req.AttendeeEmails,
		MeetingLink:    req.MeetingLink,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("meeting_created",
		"meeting_id", m.ID,
		"attendees", len(m.AttendeeIDs),
	)
	writeJSON(w, http.StatusCreated, dto.ToMeetingResponse(m))
}

// List handles GET /api/v1/meetings.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.svc.ListMeetings(r.Context(), auth.MustUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToMeetingListResponse(meetings))
}

// Get handles GET /api/v1/meetings/{id}.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.GetMeeting(r.Context(), auth.MustUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToMeetingDetailsResponse(details))
}

// Propose handles POST /api/v1/meetings/{id}/propose.
func (h *MeetingHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req dto.TimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.ProposeTime(r.Context(), auth.MustUserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.Time)
	h.writeMeeting(w, m, err)
}

// Approve handles POST /api/v1/meetings/{id}/approve.
func (h *MeetingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req dto.TimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.ApproveTime(r.Context(), auth.MustUserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.Time)
	h.writeMeeting(w, m, err)
}

// Message handles POST /api/v1/meetings/{id}/messages.
func (h *MeetingHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req dto.MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.SendMessage(r.Context(), auth.MustUserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.Text)
	h.writeMeeting(w, m, err)
}

// Move handles POST /api/v1/meetings/{id}/move.
func (h *MeetingHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.MoveMeeting(r.Context(), auth.MustUserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.NewTime)
	if err == nil {
		h.logger.Info("meeting_moved", "meeting_id", m.ID, "confirmed_time", m.ConfirmedTime)
	}
	h.writeMeeting(w, m, err)
}

// Calendar handles GET /api/v1/meetings/{id}/calendar.
func (h *MeetingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ViewCalendar(r.Context(), auth.MustUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ICS handles GET /api/v1/meetings/{id}/ics.
func (h *MeetingHandler) ICS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.svc.ExportICS(r.Context(), auth.MustUserIDFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="meeting-`+id+`.ics"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *MeetingHandler) writeMeeting(w http.ResponseWriter, m *model.Meeting, err error) {
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToMeetingResponse(m))
}
