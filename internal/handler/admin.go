package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/anonsched/scheduler/internal/handler/dto"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/service"
)

// Admin header names.
const (
	HeaderSetupToken = "X-Setup-Token"
	HeaderAdminToken = "X-Admin-Token"
)

// SettingsAPI is the settings surface served over HTTP.
type SettingsAPI interface {
	Public(ctx context.Context) (model.PublicSettings, error)
	Bootstrap(ctx context.Context, setupToken, requestedToken string) (*service.BootstrapResult, error)
	Get(ctx context.Context, adminToken string) (*model.AppSettings, error)
	Update(ctx context.Context, adminToken string, input service.UpdateSettingsInput) (*model.AppSettings, error)
}

// HealthReporter produces the admin health report.
type HealthReporter interface {
	Check(ctx context.Context) *service.HealthReport
}

// AdminHandler provides settings and operational endpoints.
type AdminHandler struct {
	settings SettingsAPI
	health   HealthReporter
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(settings SettingsAPI, health HealthReporter, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		settings: settings,
		health:   health,
		logger:   logger,
	}
}

// Health handles GET /api/v1/admin/health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	writeJSON(w, http.StatusOK, h.health.Check(ctx))
}

// PublicSettings handles GET /api/v1/admin/public-settings.
func (h *AdminHandler) PublicSettings(w http.ResponseWriter, r *http.Request) {
	public, err := h.settings.Public(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, public)
}

// Bootstrap handles POST /api/v1/admin/bootstrap.
// The body is optional.
func (h *AdminHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req dto.BootstrapRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	res, err := h.settings.Bootstrap(r.Context(), r.Header.Get(HeaderSetupToken), req.AdminToken)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("admin_bootstrapped")
	writeJSON(w, http.StatusOK, dto.BootstrapResponse{
		Message:    "Bootstrap complete. Store this admin token securely.",
		AdminToken: res.AdminToken,
		Settings:   dto.ToSettingsResponse(res.Settings),
	})
}

// GetSettings handles GET /api/v1/admin/settings.
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context(), r.Header.Get(HeaderAdminToken))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToSettingsResponse(settings))
}

// UpdateSettings handles PUT /api/v1/admin/settings.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	settings, err := h.settings.Update(r.Context(), r.Header.Get(HeaderAdminToken), service.UpdateSettingsInput{
		LogoURL:      req.LogoURL,
		CompanyName:  req.CompanyName,
		TemplateText: req.TemplateText,
		DateFormat:   req.DateFormat,
		Timezone:     req.Timezone,
		SupportEmail: req.SupportEmail,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("settings_updated")
	writeJSON(w, http.StatusOK, dto.UpdateSettingsResponse{
		Message:  "Settings updated",
		Settings: dto.ToSettingsResponse(settings),
	})
}

func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
