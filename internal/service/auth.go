package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anonsched/scheduler/internal/auth"
	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/notify"
	"github.com/anonsched/scheduler/internal/repository"
	"github.com/anonsched/scheduler/internal/scheduling"
)

// OAuthClient is the OAuth surface used to link a calendar.
type OAuthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (model.GoogleToken, error)
}

// AuthConfig holds the settings AuthService reads from configuration.
type AuthConfig struct {
	BackendURL  string
	FrontendURL string
	// EmailEnabled turns on verification mail; otherwise users are auto-verified.
	EmailEnabled bool
	// ExposeVerifyURL returns the verification link in the register response.
	ExposeVerifyURL bool
}

// AuthService handles accounts, sessions, availability and calendar linking.
type AuthService struct {
	users    UserStore
	issuer   *auth.TokenIssuer
	notifier notify.Notifier
	oauth    OAuthClient
	cfg      AuthConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService. oauth may be nil when Google is
// not configured.
func NewAuthService(users UserStore, issuer *auth.TokenIssuer, notifier notify.Notifier, oauth OAuthClient, cfg AuthConfig, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BackendURL = strings.TrimSuffix(cfg.BackendURL, "/")
	cfg.FrontendURL = strings.TrimSuffix(cfg.FrontendURL, "/")
	return &AuthService{
		users:    users,
		issuer:   issuer,
		notifier: notifier,
		oauth:    oauth,
		cfg:      cfg,
		logger:   logger.With("component", "service.auth"),
		now:      time.Now,
	}
}

// RegisterInput defines input for registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegisterResult describes the outcome of a registration.
type RegisterResult struct {
	User      *model.User
	EmailSent bool
	VerifyURL string
}

// Message is the human readable registration outcome.
func (r *RegisterResult) Message() string {
	if r.EmailSent {
		return "Registration successful. Check your email for verification link."
	}
	return "Registration successful. You can now login."
}

// Register creates an account. When mail is configured the account starts
// unverified and a verification link is mailed; if that mail cannot be queued
// the account is verified immediately.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Password == "" {
		return nil, newError(ErrInvalidInput, "username, email, and password are required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, duplicateUserError()
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:                  generateULID(),
		Username:            username,
		Email:               email,
		PasswordHash:        hash,
		IsVerified:          !s.cfg.EmailEnabled,
		AvailabilityWindows: []model.AvailabilityWindow{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if s.cfg.EmailEnabled {
		token, err := auth.GenerateVerificationToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate verification token: %w", err)
		}
		user.VerificationToken = token
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) || errors.Is(err, repository.ErrUsernameExists) {
			return nil, duplicateUserError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	result := &RegisterResult{User: user}
	if !s.cfg.EmailEnabled {
		s.logger.Info("email not configured, user auto-verified", "user_id", user.ID)
		return result, nil
	}

	verifyURL := s.cfg.BackendURL + "/api/v1/auth/verify/" + user.VerificationToken
	if err := s.notifier.Send(ctx, user.Email, "Verify Your Email", "Click to verify your email: "+verifyURL); err != nil {
		s.logger.Warn("failed to send verification email, auto-verifying",
			"user_id", user.ID,
			"recipient", user.Email,
			"error", err,
		)
		verified, verr := s.users.VerifyUserByToken(ctx, user.VerificationToken)
		if verr != nil {
			return nil, fmt.Errorf("failed to auto-verify user: %w", verr)
		}
		result.User = verified
		return result, nil
	}

	result.EmailSent = true
	if s.cfg.ExposeVerifyURL {
		result.VerifyURL = verifyURL
	}
	return result, nil
}

func duplicateUserError() error {
	return newError(ErrDuplicateUser, "User with this email or username already exists")
}

// Verify marks the account owning token as verified.
func (s *AuthService) Verify(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, newError(ErrInvalidInput, "Invalid token")
	}
	user, err := s.users.VerifyUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, newError(ErrInvalidInput, "Invalid token")
		}
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}
	return user, nil
}

// LoginResult is a session token and the signed-in user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Login checks credentials and issues a session token. Unknown, unverified
// and wrong-password logins are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := newError(ErrUnauthorized, "Invalid credentials")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsVerified {
		return nil, invalid
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, invalid
	}
	if !ok {
		return nil, invalid
	}

	token, expires, err := s.issuer.IssueSession(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

// Authenticate validates a session token and returns its user id.
func (s *AuthService) Authenticate(raw string) (string, error) {
	claims, err := s.issuer.ParseSession(raw)
	if err != nil {
		return "", newError(ErrUnauthorized, "Invalid auth token")
	}
	return claims.UserID, nil
}

// GetAvailability returns the user's availability profile.
func (s *AuthService) GetAvailability(ctx context.Context, userID string) (model.AvailabilityProfile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return model.AvailabilityProfile{}, err
	}
	return availabilityOf(user), nil
}

// UpdateAvailabilityInput carries optional availability changes.
type UpdateAvailabilityInput struct {
	ShareAvailability *bool
	Windows           *[]scheduling.WindowInput
}

// AvailabilityUpdate is the stored profile plus windows dropped by normalization.
type AvailabilityUpdate struct {
	Profile  model.AvailabilityProfile
	Rejected []scheduling.RejectedWindow
}

// UpdateAvailability applies the provided fields. A provided window list
// replaces the stored one after normalization.
func (s *AuthService) UpdateAvailability(ctx context.Context, userID string, input UpdateAvailabilityInput) (*AvailabilityUpdate, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := availabilityOf(user)
	result := &AvailabilityUpdate{Rejected: []scheduling.RejectedWindow{}}

	if input.ShareAvailability != nil {
		profile.ShareAvailability = *input.ShareAvailability
	}
	if input.Windows != nil {
		normalized := scheduling.NormalizeWindows(*input.Windows)
		profile.Windows = normalized.Valid
		result.Rejected = normalized.Rejected
		if len(normalized.Rejected) > 0 {
			s.logger.Debug("dropped invalid availability windows", "user_id", userID, "count", len(normalized.Rejected))
		}
	}

	updated, err := s.users.UpdateAvailability(ctx, userID, profile)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update availability: %w", err)
	}

	result.Profile = availabilityOf(updated)
	return result, nil
}

func availabilityOf(u *model.User) model.AvailabilityProfile {
	p := u.Availability()
	if p.Windows == nil {
		p.Windows = []model.AvailabilityWindow{}
	}
	return p
}

// GoogleAuthURL returns the consent URL for linking the user's calendar.
func (s *AuthService) GoogleAuthURL(ctx context.Context, userID string) (string, error) {
	if s.oauth == nil {
		return "", newError(ErrNotConfigured, "Google Calendar is not configured")
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return "", err
	}

	state, err := s.issuer.IssueState(userID)
	if err != nil {
		return "", fmt.Errorf("failed to issue oauth state: %w", err)
	}
	return s.oauth.AuthCodeURL(state), nil
}

// GoogleCallback completes linking and returns the frontend URL to redirect to.
func (s *AuthService) GoogleCallback(ctx context.Context, code, state string) (string, error) {
	if s.oauth == nil {
		return "", newError(ErrNotConfigured, "Google Calendar is not configured")
	}

	claims, err := s.issuer.ParseState(state)
	if err != nil {
		return "", newError(ErrInvalidInput, "Invalid OAuth state")
	}
	if strings.TrimSpace(code) == "" {
		return "", newError(ErrInvalidInput, "Authorization code is required")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("google code exchange failed", "user_id", claims.UserID, "error", err)
		return "", newError(ErrInvalidInput, "Google authorization failed")
	}

	if err := s.users.SaveGoogleToken(ctx, claims.UserID, token); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to save google token: %w", err)
	}

	s.logger.Info("google calendar linked", "user_id", claims.UserID)
	return s.cfg.FrontendURL + "/dashboard?googleConnected=true", nil
}

func (s *AuthService) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
