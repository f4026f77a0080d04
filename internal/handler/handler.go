// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anonsched/scheduler/api"
	"github.com/anonsched/scheduler/internal/handler/dto"
	"github.com/anonsched/scheduler/internal/service"
)

// Handler serves the fallback routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Root identifies the service.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":    service.AppName,
		"status": "ok",
	})
}

// OpenAPI serves the embedded API description.
// GET /openapi.yaml
func (h *Handler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPI)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Debug("failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return false
	}
	return true
}

type errorMapping struct {
	kind    error
	status  int
	code    string
	message string
}

// Order matters: a schedule conflict must be matched before generic kinds.
var errorMappings = []errorMapping{
	{service.ErrScheduleConflict, http.StatusBadRequest, "SCHEDULE_CONFLICT", "Proposed time is outside shared availability"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Not authorized"},
	{service.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", "Invalid input"},
	{service.ErrConflict, http.StatusConflict, "CONFLICT", "Resource was modified concurrently"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"},
	{service.ErrDuplicateUser, http.StatusBadRequest, "DUPLICATE_USER", "User already exists"},
	{service.ErrCalendarNotLinked, http.StatusBadRequest, "CALENDAR_NOT_LINKED", "Connect Google Calendar first"},
	{service.ErrNotConfigured, http.StatusBadRequest, "NOT_CONFIGURED", "Feature is not configured"},
}

// handleServiceError maps service errors to HTTP responses. Unknown errors
// are logged and reported without detail.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		message := service.MessageOf(err)
		if message == "" {
			message = m.message
		}
		writeError(w, m.status, m.code, message)
		return
	}

	logger.Error("internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}
