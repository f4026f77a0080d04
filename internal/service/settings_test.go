package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonsched/scheduler/internal/model"
)

func TestSettings_BootstrapFlow(t *testing.T) {
	store := newMemSettings()
	svc := NewSettingsService(store, nil, "setup-secret", discardLogger())
	ctx := context.Background()

	// Before bootstrap the setup token doubles as the admin token.
	_, err := svc.Get(ctx, "setup-secret")
	require.NoError(t, err)

	_, err = svc.Bootstrap(ctx, "wrong", "")
	assertKind(t, err, ErrUnauthorized, "Invalid setup token")

	res, err := svc.Bootstrap(ctx, "setup-secret", "")
	require.NoError(t, err)
	assert.Len(t, res.AdminToken, 48)
	assert.True(t, res.Settings.IsBootstrapped())
	assert.NotNil(t, res.Settings.InitializedAt)

	_, err = svc.Bootstrap(ctx, "setup-secret", "")
	assertKind(t, err, ErrInvalidInput, "Admin bootstrap already completed")

	_, err = svc.Get(ctx, "setup-secret")
	assertKind(t, err, ErrUnauthorized, "Invalid admin token")

	got, err := svc.Get(ctx, res.AdminToken)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCompanyName, got.CompanyName())
}

func TestSettings_BootstrapWithSuppliedToken(t *testing.T) {
	svc := NewSettingsService(newMemSettings(), nil, "setup-secret", discardLogger())
	ctx := context.Background()

	res, err := svc.Bootstrap(ctx, "setup-secret", "my-admin-token")
	require.NoError(t, err)
	assert.Equal(t, "my-admin-token", res.AdminToken)

	_, err = svc.Get(ctx, "my-admin-token")
	require.NoError(t, err)
}

func TestSettings_BootstrapNotConfigured(t *testing.T) {
	svc := NewSettingsService(newMemSettings(), nil, "", discardLogger())
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "", "")
	assertKind(t, err, ErrNotConfigured, "ADMIN_SETUP_TOKEN is not configured on the server")

	_, err = svc.Get(ctx, "")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestSettings_UpdateInvalidatesCache(t *testing.T) {
	store := newMemSettings()
	cache := &memSettingsCache{}
	svc := NewSettingsService(store, cache, "setup-secret", discardLogger())
	ctx := context.Background()

	public, err := svc.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCompanyName, public.Branding.CompanyName)
	require.NotNil(t, cache.value)

	name := "Acme"
	tz := "Europe/Berlin"
	updated, err := svc.Update(ctx, "setup-secret", UpdateSettingsInput{CompanyName: &name, Timezone: &tz})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Branding.CompanyName)
	assert.Equal(t, "Europe/Berlin", updated.Preferences.Timezone)
	assert.Nil(t, cache.value)
	assert.Equal(t, 1, cache.deletes)

	assert.Equal(t, "Acme", svc.CompanyName(ctx))

	bad := "Mars/Olympus"
	_, err = svc.Update(ctx, "setup-secret", UpdateSettingsInput{Timezone: &bad})
	assertKind(t, err, ErrInvalidInput, "Invalid timezone")
}

func TestSettings_PublicServedFromCache(t *testing.T) {
	cache := &memSettingsCache{value: &model.PublicSettings{Branding: model.Branding{CompanyName: "Cached"}}}
	svc := NewSettingsService(newMemSettings(), cache, "", discardLogger())

	public, err := svc.Public(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cached", public.Branding.CompanyName)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealth_Check(t *testing.T) {
	store := newMemSettings()
	h := NewHealthService(stubPinger{}, stubPinger{}, store, ConfigPresence{HasJWTSecret: true})

	report := h.Check(context.Background())
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, AppName, report.App)
	assert.Equal(t, "connected", report.Database)
	assert.False(t, report.Settings.IsBootstrapped)

	h = NewHealthService(stubPinger{err: errors.New("down")}, nil, store, ConfigPresence{})
	report = h.Check(context.Background())
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "disconnected", report.Database)
	assert.Equal(t, "disabled", report.Redis)
}
