package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonsched/scheduler/internal/metrics"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/service"
)

func newAdminRouter(api *fakeSettingsAPI) http.Handler {
	h := NewAdminHandler(api, fakeHealth{}, discardLogger())
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/public-settings", h.PublicSettings)
	r.Post("/bootstrap", h.Bootstrap)
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	return r
}

func TestAdminHandler_BootstrapWithoutBody(t *testing.T) {
	api := &fakeSettingsAPI{settings: model.DefaultAppSettings()}

	req := httptest.NewRequest(http.MethodPost, "/bootstrap", nil)
	req.Header.Set(HeaderSetupToken, "setup")
	rec := httptest.NewRecorder()
	newAdminRouter(api).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "setup", api.setupToken)
	assert.Empty(t, api.requestedToken)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "generated", body["admin_token"])
}

func TestAdminHandler_BootstrapWithToken(t *testing.T) {
	api := &fakeSettingsAPI{settings: model.DefaultAppSettings()}

	req := httptest.NewRequest(http.MethodPost, "/bootstrap", strings.NewReader(`{"admin_token":"mine"}`))
	req.Header.Set(HeaderSetupToken, "setup")
	rec := httptest.NewRecorder()
	newAdminRouter(api).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mine", api.requestedToken)
}

func TestAdminHandler_BootstrapErrors(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"not configured", &service.Error{Kind: service.ErrNotConfigured, Message: "ADMIN_SETUP_TOKEN is not configured on the server"}, http.StatusBadRequest, "NOT_CONFIGURED"},
		{"bad token", &service.Error{Kind: service.ErrUnauthorized, Message: "Invalid setup token"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"done", &service.Error{Kind: service.ErrInvalidInput, Message: "Admin bootstrap already completed"}, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeSettingsAPI{settings: model.DefaultAppSettings(), err: tc.err}
			rec := do(newAdminRouter(api), http.MethodPost, "/bootstrap", "")

			assert.Equal(t, tc.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestAdminHandler_Settings(t *testing.T) {
	settings := model.DefaultAppSettings()
	settings.AdminTokenHash = "hash"
	api := &fakeSettingsAPI{settings: settings}
	router := newAdminRouter(api)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.Header.Set(HeaderAdminToken, "admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", api.adminToken)
	assert.NotContains(t, rec.Body.String(), "hash")

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["is_bootstrapped"])

	req = httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(`{"company_name":"Acme","timezone":"Europe/Paris"}`))
	req.Header.Set(HeaderAdminToken, "admin")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, api.update.CompanyName)
	assert.Equal(t, "Acme", *api.update.CompanyName)
	require.NotNil(t, api.update.Timezone)
	assert.Nil(t, api.update.LogoURL)
	assert.Contains(t, rec.Body.String(), "Settings updated")
}

func TestAdminHandler_PublicSettings(t *testing.T) {
	api := &fakeSettingsAPI{settings: &model.AppSettings{}}
	rec := do(newAdminRouter(api), http.MethodGet, "/public-settings", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body model.PublicSettings
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, model.DefaultCompanyName, body.Branding.CompanyName)
	assert.Equal(t, model.DefaultTimezone, body.Preferences.Timezone)
}

func TestAdminHandler_Health(t *testing.T) {
	rec := do(newAdminRouter(&fakeSettingsAPI{}), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), service.AppName)
}

func TestMetricsHandler_Snapshot(t *testing.T) {
	rec := metrics.NewInMemory()
	rec.IncMeetingCreated()
	rec.IncProposal(metrics.ProposalConflict)
	rec.IncCalendarSync(metrics.CalendarCreate, metrics.StatusFailure)

	out := httptest.NewRecorder()
	NewMetricsHandler(rec).Metrics(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, out.Code)
	body := out.Body.String()
	assert.Contains(t, body, "scheduler_meetings_created_total 1\n")
	assert.Contains(t, body, `scheduler_proposals_total{outcome="conflict"} 1`)
	assert.Contains(t, body, `scheduler_calendar_sync_total{op="create",status="failure"} 1`)
}

func TestMetricsHandler_Unavailable(t *testing.T) {
	out := httptest.NewRecorder()
	NewMetricsHandler(metrics.NewNoop()).Metrics(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, out.Code)
}
