package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonsched/scheduler/internal/auth"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/scheduling"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type fakeOAuth struct {
	lastState string
	token     model.GoogleToken
	err       error
}

func (o *fakeOAuth) AuthCodeURL(state string) string {
	o.lastState = state
	return "https://accounts.example.com/auth?state=" + state
}

func (o *fakeOAuth) Exchange(ctx context.Context, code string) (model.GoogleToken, error) {
	if o.err != nil {
		return model.GoogleToken{}, o.err
	}
	return o.token, nil
}

func newAuthService(users *memUsers, notifier *fakeNotifier, oauth OAuthClient, cfg AuthConfig) *AuthService {
	issuer := auth.NewTokenIssuer(testSecret, time.Hour, "scheduler-test")
	if cfg.BackendURL == "" {
		cfg.BackendURL = "http://api.example.com/"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://app.example.com"
	}
	return NewAuthService(users, issuer, notifier, oauth, cfg, discardLogger())
}

func TestRegister_WithoutEmailAutoVerifies(t *testing.T) {
	users := newMemUsers()
	notifier := &fakeNotifier{}
	svc := newAuthService(users, notifier, nil, AuthConfig{})

	res, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    " Alice@Example.com ",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.False(t, res.EmailSent)
	assert.Empty(t, res.VerifyURL)
	assert.Equal(t, "Registration successful. You can now login.", res.Message())
	assert.True(t, res.User.IsVerified)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Empty(t, notifier.sent)

	login, err := svc.Login(context.Background(), "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, res.User.ID, login.User.ID)

	userID, err := svc.Authenticate(login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)
}

func TestRegister_WithEmailSendsVerification(t *testing.T) {
	users := newMemUsers()
	notifier := &fakeNotifier{}
	svc := newAuthService(users, notifier, nil, AuthConfig{EmailEnabled: true, ExposeVerifyURL: true})
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	assert.False(t, res.User.IsVerified)
	assert.Equal(t, "Registration successful. Check your email for verification link.", res.Message())
	assert.True(t, strings.HasPrefix(res.VerifyURL, "http://api.example.com/api/v1/auth/verify/"), res.VerifyURL)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Verify Your Email", notifier.sent[0].subject)
	assert.Equal(t, "Click to verify your email: "+res.VerifyURL, notifier.sent[0].body)

	_, err = svc.Login(ctx, "alice@example.com", "pw")
	assertKind(t, err, ErrUnauthorized, "Invalid credentials")

	token := strings.TrimPrefix(res.VerifyURL, "http://api.example.com/api/v1/auth/verify/")
	verified, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	_, err = svc.Verify(ctx, token)
	assertKind(t, err, ErrInvalidInput, "Invalid token")

	_, err = svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
}

func TestRegister_HidesVerifyURLInProduction(t *testing.T) {
	svc := newAuthService(newMemUsers(), &fakeNotifier{}, nil, AuthConfig{EmailEnabled: true})

	res, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	assert.Empty(t, res.VerifyURL)
}

func TestRegister_FailedVerificationMailAutoVerifies(t *testing.T) {
	notifier := &fakeNotifier{failFor: map[string]bool{"alice@example.com": true}}
	svc := newAuthService(newMemUsers(), notifier, nil, AuthConfig{EmailEnabled: true, ExposeVerifyURL: true})

	res, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, res.EmailSent)
	assert.Empty(t, res.VerifyURL)
	assert.True(t, res.User.IsVerified)
}

func TestRegister_Validation(t *testing.T) {
	users := newMemUsers(newUser("u1", "alice"))
	svc := newAuthService(users, &fakeNotifier{}, nil, AuthConfig{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "", Password: "pw"})
	assertKind(t, err, ErrInvalidInput, "username, email, and password are required")

	_, err = svc.Register(ctx, RegisterInput{Username: "bob", Email: "alice@example.com", Password: "pw"})
	assertKind(t, err, ErrDuplicateUser, "User with this email or username already exists")

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "pw"})
	assertKind(t, err, ErrDuplicateUser, "User with this email or username already exists")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := newAuthService(newMemUsers(), &fakeNotifier{}, nil, AuthConfig{})
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "right"})
	require.NoError(t, err)

	for _, tc := range []struct{ email, password string }{
		{"alice@example.com", "wrong"},
		{"nobody@example.com", "right"},
		{"", ""},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password)
		assertKind(t, err, ErrUnauthorized, "Invalid credentials")
	}

	_, err = svc.Authenticate("not-a-jwt")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestUpdateAvailability(t *testing.T) {
	users := newMemUsers(newUser("u1", "alice"))
	svc := newAuthService(users, &fakeNotifier{}, nil, AuthConfig{})
	ctx := context.Background()

	share := true
	windows := []scheduling.WindowInput{
		{DayOfWeek: 1, StartTime: " 09:00 ", EndTime: "17:00"},
		{DayOfWeek: 7, StartTime: "09:00", EndTime: "10:00"},
		{DayOfWeek: 2, StartTime: "12:00", EndTime: "11:00"},
	}
	res, err := svc.UpdateAvailability(ctx, "u1", UpdateAvailabilityInput{ShareAvailability: &share, Windows: &windows})
	require.NoError(t, err)
	assert.True(t, res.Profile.ShareAvailability)
	assert.Equal(t, []model.AvailabilityWindow{{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}}, res.Profile.Windows)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, scheduling.RejectInvalidDay, res.Rejected[0].Reason)
	assert.Equal(t, scheduling.RejectStartNotBeforeEnd, res.Rejected[1].Reason)

	// Omitted windows keep the stored set.
	off := false
	res, err = svc.UpdateAvailability(ctx, "u1", UpdateAvailabilityInput{ShareAvailability: &off})
	require.NoError(t, err)
	assert.False(t, res.Profile.ShareAvailability)
	assert.Len(t, res.Profile.Windows, 1)

	got, err := svc.GetAvailability(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, res.Profile, got)

	_, err = svc.GetAvailability(ctx, "missing")
	assertKind(t, err, ErrNotFound, "")
}

func TestGoogleLinking(t *testing.T) {
	users := newMemUsers(newUser("u1", "alice"))
	expiry := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	oauth := &fakeOAuth{token: model.GoogleToken{AccessToken: "access", RefreshToken: "refresh", Expiry: &expiry}}
	svc := newAuthService(users, &fakeNotifier{}, oauth, AuthConfig{})
	ctx := context.Background()

	url, err := svc.GoogleAuthURL(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, url, oauth.lastState)

	redirect, err := svc.GoogleCallback(ctx, "code", oauth.lastState)
	require.NoError(t, err)
	assert.Equal(t, "http://app.example.com/dashboard?googleConnected=true", redirect)

	u := users.get("u1")
	assert.True(t, u.HasLinkedCalendar())
	assert.Equal(t, "refresh", u.GoogleRefreshToken)

	// A re-link without a refresh token keeps the stored one.
	oauth.token = model.GoogleToken{AccessToken: "access-2"}
	_, err = svc.GoogleCallback(ctx, "code", oauth.lastState)
	require.NoError(t, err)
	assert.Equal(t, "refresh", users.get("u1").GoogleRefreshToken)
	assert.Equal(t, "access-2", users.get("u1").GoogleAccessToken)

	_, err = svc.GoogleCallback(ctx, "code", "u1")
	assertKind(t, err, ErrInvalidInput, "Invalid OAuth state")

	// A session token is not accepted as OAuth state.
	users.users["u1"].PasswordHash, _ = auth.HashPassword("pw")
	login, err := svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	_, err = svc.GoogleCallback(ctx, "code", login.Token)
	assertKind(t, err, ErrInvalidInput, "")
}

func TestGoogleLinking_NotConfigured(t *testing.T) {
	svc := newAuthService(newMemUsers(newUser("u1", "alice")), &fakeNotifier{}, nil, AuthConfig{})

	_, err := svc.GoogleAuthURL(context.Background(), "u1")
	assertKind(t, err, ErrNotConfigured, "")
}
