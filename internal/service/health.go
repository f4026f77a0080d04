package service

import (
	"context"
	"time"

	"github.com/anonsched/scheduler/internal/model"
)

// AppName is reported by the health endpoints.
const AppName = "SimpleAnonymousScheduler"

// Pinger is a dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConfigPresence reports which optional integrations are configured.
type ConfigPresence struct {
	HasDatabaseURL     bool   `json:"has_database_url"`
	HasRedisURL        bool   `json:"has_redis_url"`
	HasJWTSecret       bool   `json:"has_jwt_secret"`
	HasEmailConfig     bool   `json:"has_email_config"`
	HasGoogleOAuth     bool   `json:"has_google_oauth_config"`
	FrontendURL        string `json:"frontend_url"`
	HasAdminSetupToken bool   `json:"has_admin_setup_token"`
}

// HealthReport is the admin health view.
type HealthReport struct {
	App        string          `json:"app"`
	Status     string          `json:"status"`
	ServerTime time.Time       `json:"server_time"`
	Database   string          `json:"database"`
	Redis      string          `json:"redis"`
	Config     ConfigPresence  `json:"config"`
	Settings   SettingsSummary `json:"settings"`
}

// SettingsSummary is the bootstrap state of the settings row.
type SettingsSummary struct {
	IsBootstrapped bool       `json:"is_bootstrapped"`
	InitializedAt  *time.Time `json:"initialized_at"`
}

// HealthService aggregates dependency state.
type HealthService struct {
	db       Pinger
	redis    Pinger
	settings SettingsStore
	config   ConfigPresence
	now      func() time.Time
}

// NewHealthService creates a HealthService. redis may be nil.
func NewHealthService(db, redis Pinger, settings SettingsStore, config ConfigPresence) *HealthService {
	return &HealthService{
		db:       db,
		redis:    redis,
		settings: settings,
		config:   config,
		now:      time.Now,
	}
}

// Check pings every dependency. Status is "ok" only when all are connected.
func (h *HealthService) Check(ctx context.Context) *HealthReport {
	report := &HealthReport{
		App:        AppName,
		Status:     "ok",
		ServerTime: h.now().UTC(),
		Database:   pingState(ctx, h.db),
		Redis:      pingState(ctx, h.redis),
		Config:     h.config,
	}
	if report.Database != "connected" || report.Redis == "disconnected" {
		report.Status = "degraded"
	}

	if report.Database == "connected" && h.settings != nil {
		if s, err := h.settings.GetOrCreateSettings(ctx); err == nil {
			report.Settings = summarize(s)
		}
	}
	return report
}

func summarize(s *model.AppSettings) SettingsSummary {
	return SettingsSummary{IsBootstrapped: s.IsBootstrapped(), InitializedAt: s.InitializedAt}
}

func pingState(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
