package model

import "time"

// Default application settings.
const (
	DefaultCompanyName  = "SimpleAnonymousScheduler"
	DefaultTemplateText = "Welcome to SimpleAnonymousScheduler"
	DefaultDateFormat   = "MM/dd/yyyy"
	DefaultTimezone     = "UTC"

	SettingsSingletonKey = "default"
)

// Branding holds white-label display settings.
type Branding struct {
	LogoURL      string `json:"logo_url"`
	CompanyName  string `json:"company_name"`
	TemplateText string `json:"template_text"`
}

// Preferences holds display preferences for clients.
type Preferences struct {
	DateFormat string `json:"date_format"`
	Timezone   string `json:"timezone"`
}

// AppSettings is the singleton administrative configuration row.
type AppSettings struct {
	Branding       Branding    `json:"branding"`
	Preferences    Preferences `json:"preferences"`
	SupportEmail   string      `json:"support_email"`
	AdminTokenHash string      `json:"-"`
	InitializedAt  *time.Time  `json:"initialized_at,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// DefaultAppSettings returns settings populated with defaults.
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		Branding: Branding{
			CompanyName:  DefaultCompanyName,
			TemplateText: DefaultTemplateText,
		},
		Preferences: Preferences{
			DateFormat: DefaultDateFormat,
			Timezone:   DefaultTimezone,
		},
	}
}

// IsBootstrapped returns true once an admin token has been issued.
func (s *AppSettings) IsBootstrapped() bool {
	return s.AdminTokenHash != ""
}

// CompanyName returns the configured company name or the default.
func (s *AppSettings) CompanyName() string {
	if s == nil || s.Branding.CompanyName == "" {
		return DefaultCompanyName
	}
	return s.Branding.CompanyName
}

// PublicSettings is the unauthenticated view of AppSettings.
type PublicSettings struct {
	Branding     Branding    `json:"branding"`
	Preferences  Preferences `json:"preferences"`
	SupportEmail string      `json:"support_email"`
}

// Public returns the sanitized public view, filling empty fields with defaults.
func (s *AppSettings) Public() PublicSettings {
	p := PublicSettings{
		Branding:     s.Branding,
		Preferences:  s.Preferences,
		SupportEmail: s.SupportEmail,
	}
	if p.Branding.CompanyName == "" {
		p.Branding.CompanyName = DefaultCompanyName
	}
	if p.Branding.TemplateText == "" {
		p.Branding.TemplateText = DefaultTemplateText
	}
	if p.Preferences.DateFormat == "" {
		p.Preferences.DateFormat = DefaultDateFormat
	}
	if p.Preferences.Timezone == "" {
		p.Preferences.Timezone = DefaultTimezone
	}
	return p
}
