package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/service"
)

func newAuthRouter(api *fakeAuthAPI) http.Handler {
	h := NewAuthHandler(api, discardLogger())
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Get("/verify/{token}", h.Verify)
	r.Post("/login", h.Login)
	r.Get("/google", h.GoogleAuth)
	r.Get("/google/callback", h.GoogleCallback)
	r.With(func(next http.Handler) http.Handler { return withUser("u1", next) }).Group(func(r chi.Router) {
		r.Get("/availability", h.GetAvailability)
		r.Put("/availability", h.UpdateAvailability)
	})
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	api := &fakeAuthAPI{register: &service.RegisterResult{
		User:      &model.User{ID: "u1"},
		EmailSent: true,
	}}

	rec := do(newAuthRouter(api), http.MethodPost, "/register", `{"username":"alice","email":"alice@example.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, service.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"}, api.registered)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["email_sent"])
	assert.Equal(t, "Registration successful. Check your email for verification link.", body["message"])
	assert.NotContains(t, body, "verify_url")
}

func TestAuthHandler_RegisterDuplicate(t *testing.T) {
	api := &fakeAuthAPI{err: &service.Error{Kind: service.ErrDuplicateUser, Message: "User with this email or username already exists"}}

	rec := do(newAuthRouter(api), http.MethodPost, "/register", `{"username":"alice","email":"a@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_USER")
}

func TestAuthHandler_Verify(t *testing.T) {
	rec := do(newAuthRouter(&fakeAuthAPI{}), http.MethodGet, "/verify/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email verified")
}

func TestAuthHandler_Login(t *testing.T) {
	expires := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	api := &fakeAuthAPI{login: &service.LoginResult{
		Token:     "jwt",
		ExpiresAt: expires,
		User:      &model.User{ID: "u1", Username: "alice", Email: "alice@example.com"},
	}}

	rec := do(newAuthRouter(api), http.MethodPost, "/login", `{"email":"alice@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Token string `json:"token"`
		User  struct {
			Username            string `json:"username"`
			AvailabilityWindows []any  `json:"availability_windows"`
			CalendarLinked      bool   `json:"calendar_linked"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "jwt", body.Token)
	assert.Equal(t, "alice", body.User.Username)
	assert.NotNil(t, body.User.AvailabilityWindows)
	assert.False(t, body.User.CalendarLinked)
}

func TestAuthHandler_LoginUnauthorized(t *testing.T) {
	api := &fakeAuthAPI{err: &service.Error{Kind: service.ErrUnauthorized, Message: "Invalid credentials"}}

	rec := do(newAuthRouter(api), http.MethodPost, "/login", `{"email":"x","password":"y"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestAuthHandler_UpdateAvailability(t *testing.T) {
	api := &fakeAuthAPI{profile: model.AvailabilityProfile{
		ShareAvailability: true,
		Windows:           []model.AvailabilityWindow{{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"}},
	}}

	rec := do(newAuthRouter(api), http.MethodPut, "/availability",
		`{"share_availability":true,"availability_windows":[{"day_of_week":"1","start_time":"9:00","end_time":"12:00"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NotNil(t, api.update.ShareAvailability)
	assert.True(t, *api.update.ShareAvailability)
	require.NotNil(t, api.update.Windows)
	require.Len(t, *api.update.Windows, 1)
	assert.Equal(t, 1, (*api.update.Windows)[0].DayOfWeek)
	assert.Equal(t, "9:00", (*api.update.Windows)[0].StartTime)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Availability updated", body["message"])
	assert.Len(t, body["availability_windows"], 1)
}

func TestAuthHandler_UpdateAvailabilityOmittedFields(t *testing.T) {
	api := &fakeAuthAPI{}

	rec := do(newAuthRouter(api), http.MethodPut, "/availability", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, api.update.ShareAvailability)
	assert.Nil(t, api.update.Windows)
}

func TestAuthHandler_GetAvailability(t *testing.T) {
	rec := do(newAuthRouter(&fakeAuthAPI{}), http.MethodGet, "/availability", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"share_availability":false,"availability_windows":[]}`, rec.Body.String())
}

func TestAuthHandler_GoogleAuth(t *testing.T) {
	api := &fakeAuthAPI{authURL: "https://accounts.example.com/consent"}
	router := newAuthRouter(api)

	t.Run("redirects with query token", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/google?token=good-token", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://accounts.example.com/consent", rec.Header().Get("Location"))
	})

	t.Run("returns json with bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/google", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"url":"https://accounts.example.com/consent"}`, rec.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/google", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/google?token=nope", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid auth token")
	})
}

func TestAuthHandler_GoogleCallback(t *testing.T) {
	api := &fakeAuthAPI{redirect: "https://app.example.com/dashboard?googleConnected=true"}
	router := newAuthRouter(api)

	rec := do(router, http.MethodGet, "/google/callback?code=c&state=s", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/dashboard?googleConnected=true", rec.Header().Get("Location"))

	rec = do(router, http.MethodGet, "/google/callback?error=access_denied", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_RegisterValidatesFormat(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{"bad email", `{"username":"alice","email":"Alice <alice@example.com>","password":"pw"}`, "Invalid email"},
		{"bad username", `{"username":"alice smith","email":"alice@example.com","password":"pw"}`, "Invalid username"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAuthAPI{}
			rec := do(newAuthRouter(api), http.MethodPost, "/register", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			assert.Empty(t, api.registered.Email)
		})
	}
}
