package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anonsched/scheduler/internal/auth"
	"github.com/anonsched/scheduler/internal/handler/dto"
	"github.com/anonsched/scheduler/internal/middleware"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/service"
)

// AuthAPI is the account surface served over HTTP.
type AuthAPI interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.RegisterResult, error)
	Verify(ctx context.Context, token string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Authenticate(raw string) (string, error)
	GetAvailability(ctx context.Context, userID string) (model.AvailabilityProfile, error)
	UpdateAvailability(ctx context.Context, userID string, input service.UpdateAvailabilityInput) (*service.AvailabilityUpdate, error)
	GoogleAuthURL(ctx context.Context, userID string) (string, error)
	GoogleCallback(ctx context.Context, code, state string) (string, error)
}

// AuthHandler handles registration, sessions, availability and calendar linking.
type AuthHandler struct {
	svc    AuthAPI
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthAPI, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid username: "+err.Error())
		return
	}
	if err := middleware.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid email: "+err.Error())
		return
	}

	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_registered", "user_id", res.User.ID, "email_sent", res.EmailSent)
	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		Message:   res.Message(),
		EmailSent: res.EmailSent,
		VerifyURL: res.VerifyURL,
	})
}

// Verify handles GET /api/v1/auth/verify/{token}.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Verify(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_verified", "user_id", user.ID)
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Email verified"})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      dto.ToUserResponse(res.User),
	})
}

// GetAvailability handles GET /api/v1/auth/availability.
func (h *AuthHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetAvailability(r.Context(), auth.MustUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToAvailabilityResponse(profile))
}

// UpdateAvailability handles PUT /api/v1/auth/availability.
func (h *AuthHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAvailabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.UpdateAvailability(r.Context(), auth.MustUserIDFromContext(r.Context()), service.UpdateAvailabilityInput{
		ShareAvailability: req.ShareAvailability,
		Windows:           req.WindowInputs(),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := dto.ToAvailabilityResponse(res.Profile)
	resp.Message = "Availability updated"
	resp.Rejected = res.Rejected
	writeJSON(w, http.StatusOK, resp)
}

// GoogleAuth handles GET /api/v1/auth/google.
// Browsers navigate here directly, so the session token may come from the
// token query parameter instead of the Authorization header. Clients that
// accept JSON get the URL back instead of a redirect.
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = middleware.BearerToken(r)
	}
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing auth token")
		return
	}

	userID, err := h.svc.Authenticate(raw)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	url, err := h.svc.GoogleAuthURL(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, dto.AuthURLResponse{URL: url})
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback handles GET /api/v1/auth/google/callback.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Google authorization was denied")
		return
	}

	redirect, err := h.svc.GoogleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}
