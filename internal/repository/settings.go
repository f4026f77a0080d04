package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anonsched/scheduler/internal/model"
)

// ErrAlreadyBootstrapped is returned when an admin token already exists.
var ErrAlreadyBootstrapped = errors.New("admin bootstrap already completed")

const settingsColumns = `
	company_name, logo_url, template_text, date_format, timezone,
	support_email, admin_token_hash, initialized_at, updated_at
`

// GetOrCreateSettings returns the singleton settings row, creating it with defaults.
func (r *Repository) GetOrCreateSettings(ctx context.Context) (*model.AppSettings, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO app_settings (singleton_key) VALUES ($1) ON CONFLICT (singleton_key) DO NOTHING`,
		model.SettingsSingletonKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure settings row: %w", err)
	}

	query := `SELECT ` + settingsColumns + ` FROM app_settings WHERE singleton_key = $1`
	s, err := scanSettings(r.pool.QueryRow(ctx, query, model.SettingsSingletonKey))
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return s, nil
}

// UpdateSettings writes branding, preferences and support email.
func (r *Repository) UpdateSettings(ctx context.Context, s *model.AppSettings) (*model.AppSettings, error) {
	query := `
		UPDATE app_settings
		SET company_name = $2, logo_url = $3, template_text = $4,
			date_format = $5, timezone = $6, support_email = $7, updated_at = NOW()
		WHERE singleton_key = $1
		RETURNING ` + settingsColumns

	updated, err := scanSettings(r.pool.QueryRow(ctx, query,
		model.SettingsSingletonKey,
		s.Branding.CompanyName,
		s.Branding.LogoURL,
		s.Branding.TemplateText,
		s.Preferences.DateFormat,
		s.Preferences.Timezone,
		s.SupportEmail,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	return updated, nil
}

// SetAdminTokenHash stores the admin token hash exactly once.
func (r *Repository) SetAdminTokenHash(ctx context.Context, hash string, at time.Time) (*model.AppSettings, error) {
	query := `
		UPDATE app_settings
		SET admin_token_hash = $2, initialized_at = $3, updated_at = NOW()
		WHERE singleton_key = $1 AND admin_token_hash = ''
		RETURNING ` + settingsColumns

	s, err := scanSettings(r.pool.QueryRow(ctx, query, model.SettingsSingletonKey, hash, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyBootstrapped
		}
		return nil, fmt.Errorf("failed to store admin token: %w", err)
	}

	return s, nil
}

func scanSettings(row pgx.Row) (*model.AppSettings, error) {
	var s model.AppSettings

	err := row.Scan(
		&s.Branding.CompanyName,
		&s.Branding.LogoURL,
		&s.Branding.TemplateText,
		&s.Preferences.DateFormat,
		&s.Preferences.Timezone,
		&s.SupportEmail,
		&s.AdminTokenHash,
		&s.InitializedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
