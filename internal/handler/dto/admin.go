package dto

import (
	"time"

	"github.com/anonsched/scheduler/internal/model"
)

// BootstrapRequest optionally supplies the admin token to store.
type BootstrapRequest struct {
	AdminToken string `json:"admin_token,omitempty"`
}

// BootstrapResponse returns the admin token once.
type BootstrapResponse struct {
	Message    string           `json:"message"`
	AdminToken string           `json:"admin_token"`
	Settings   SettingsResponse `json:"settings"`
}

// UpdateSettingsRequest represents the request body for updating settings.
// Omitted fields are left unchanged.
type UpdateSettingsRequest struct {
	LogoURL      *string `json:"logo_url,omitempty"`
	CompanyName  *string `json:"company_name,omitempty"`
	TemplateText *string `json:"template_text,omitempty"`
	DateFormat   *string `json:"date_format,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
	SupportEmail *string `json:"support_email,omitempty"`
}

// SettingsResponse is the admin view of settings, without the token hash.
type SettingsResponse struct {
	Branding       model.Branding    `json:"branding"`
	Preferences    model.Preferences `json:"preferences"`
	SupportEmail   string            `json:"support_email"`
	InitializedAt  *time.Time        `json:"initialized_at"`
	IsBootstrapped bool              `json:"is_bootstrapped"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ToSettingsResponse converts AppSettings.
func ToSettingsResponse(s *model.AppSettings) SettingsResponse {
	return SettingsResponse{
		Branding:       s.Branding,
		Preferences:    s.Preferences,
		SupportEmail:   s.SupportEmail,
		InitializedAt:  s.InitializedAt,
		IsBootstrapped: s.IsBootstrapped(),
		UpdatedAt:      s.UpdatedAt,
	}
}

// UpdateSettingsResponse acknowledges a settings update.
type UpdateSettingsResponse struct {
	Message  string           `json:"message"`
	Settings SettingsResponse `json:"settings"`
}
