package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anonsched/scheduler/internal/auth"
	"github.com/anonsched/scheduler/internal/cache"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/repository"
)

// SettingsService manages the singleton application settings.
type SettingsService struct {
	store      SettingsStore
	cache      SettingsCache
	setupToken string
	logger     *slog.Logger
	now        func() time.Time
}

// NewSettingsService creates a new SettingsService. cache may be nil.
func NewSettingsService(store SettingsStore, settingsCache SettingsCache, setupToken string, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{
		store:      store,
		cache:      settingsCache,
		setupToken: setupToken,
		logger:     logger.With("component", "service.settings"),
		now:        time.Now,
	}
}

// Public returns the unauthenticated settings view, served from cache when possible.
func (s *SettingsService) Public(ctx context.Context) (model.PublicSettings, error) {
	if s.cache != nil {
		cached, err := s.cache.GetPublicSettings(ctx)
		if err == nil {
			return *cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("settings cache read failed", "error", err)
		}
	}

	settings, err := s.store.GetOrCreateSettings(ctx)
	if err != nil {
		return model.PublicSettings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	public := settings.Public()
	if s.cache != nil {
		if err := s.cache.SetPublicSettings(ctx, public); err != nil {
			s.logger.Warn("settings cache write failed", "error", err)
		}
	}
	return public, nil
}

// CompanyName returns the branding name, falling back to the default on error.
func (s *SettingsService) CompanyName(ctx context.Context) string {
	public, err := s.Public(ctx)
	if err != nil {
		s.logger.Warn("failed to resolve company name", "error", err)
		return model.DefaultCompanyName
	}
	return public.Branding.CompanyName
}

// BootstrapResult carries the admin token. It is returned exactly once.
type BootstrapResult struct {
	AdminToken string
	Settings   *model.AppSettings
}

// Bootstrap issues the admin token. It requires the configured setup token
// and succeeds only once. An empty requestedToken generates one.
func (s *SettingsService) Bootstrap(ctx context.Context, setupToken, requestedToken string) (*BootstrapResult, error) {
	if s.setupToken == "" {
		return nil, newError(ErrNotConfigured, "ADMIN_SETUP_TOKEN is not configured on the server")
	}
	if !auth.TokensEqual(setupToken, s.setupToken) {
		return nil, newError(ErrUnauthorized, "Invalid setup token")
	}

	settings, err := s.store.GetOrCreateSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.IsBootstrapped() {
		return nil, alreadyBootstrappedError()
	}

	adminToken := strings.TrimSpace(requestedToken)
	if adminToken == "" {
		adminToken, err = auth.GenerateAdminToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate admin token: %w", err)
		}
	}

	updated, err := s.store.SetAdminTokenHash(ctx, auth.HashToken(adminToken), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyBootstrapped) {
			return nil, alreadyBootstrappedError()
		}
		return nil, fmt.Errorf("failed to store admin token: %w", err)
	}

	s.logger.Info("admin bootstrap completed")
	return &BootstrapResult{AdminToken: adminToken, Settings: updated}, nil
}

func alreadyBootstrappedError() error {
	return newError(ErrInvalidInput, "Admin bootstrap already completed")
}

// Get returns the full settings for an authorized admin.
func (s *SettingsService) Get(ctx context.Context, adminToken string) (*model.AppSettings, error) {
	return s.authorize(ctx, adminToken)
}

// UpdateSettingsInput carries optional settings changes.
type UpdateSettingsInput struct {
	LogoURL      *string
	CompanyName  *string
	TemplateText *string
	DateFormat   *string
	Timezone     *string
	SupportEmail *string
}

// Update applies the provided fields and invalidates the public cache.
func (s *SettingsService) Update(ctx context.Context, adminToken string, input UpdateSettingsInput) (*model.AppSettings, error) {
	settings, err := s.authorize(ctx, adminToken)
	if err != nil {
		return nil, err
	}

	if input.Timezone != nil {
		tz := strings.TrimSpace(*input.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, newError(ErrInvalidInput, "Invalid timezone")
		}
		settings.Preferences.Timezone = tz
	}
	if input.LogoURL != nil {
		settings.Branding.LogoURL = *input.LogoURL
	}
	if input.CompanyName != nil {
		settings.Branding.CompanyName = *input.CompanyName
	}
	if input.TemplateText != nil {
		settings.Branding.TemplateText = *input.TemplateText
	}
	if input.DateFormat != nil {
		settings.Preferences.DateFormat = *input.DateFormat
	}
	if input.SupportEmail != nil {
		settings.SupportEmail = *input.SupportEmail
	}

	updated, err := s.store.UpdateSettings(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeletePublicSettings(ctx); err != nil {
			s.logger.Warn("settings cache invalidation failed", "error", err)
		}
	}
	return updated, nil
}

// authorize accepts the hashed admin token once bootstrapped, else the setup token.
func (s *SettingsService) authorize(ctx context.Context, adminToken string) (*model.AppSettings, error) {
	settings, err := s.store.GetOrCreateSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	ok := false
	if adminToken != "" {
		if settings.IsBootstrapped() {
			ok = auth.TokenMatchesHash(adminToken, settings.AdminTokenHash)
		} else {
			ok = s.setupToken != "" && auth.TokensEqual(adminToken, s.setupToken)
		}
	}
	if !ok {
		return nil, newError(ErrUnauthorized, "Invalid admin token")
	}
	return settings, nil
}
