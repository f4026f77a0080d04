package calendar

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/anonsched/scheduler/internal/model"
)

// Sentinel errors for calendar operations.
var (
	ErrNotLinked     = errors.New("google calendar not linked")
	ErrNotConfigured = errors.New("google oauth not configured")
)

// OAuth wraps the Google OAuth2 client configuration.
type OAuth struct {
	config *oauth2.Config
}

// NewOAuth creates the OAuth helper for the calendar scope.
func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarScope},
		},
	}
}

// AuthCodeURL returns the consent URL. Offline access and a forced consent
// prompt make Google issue a refresh token on every link.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (model.GoogleToken, error) {
	if code == "" {
		return model.GoogleToken{}, errors.New("authorization code is required")
	}
	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return model.GoogleToken{}, fmt.Errorf("exchange auth code: %w", err)
	}
	return fromOAuthToken(tok), nil
}

// Config returns the underlying oauth2 configuration.
func (o *OAuth) Config() *oauth2.Config {
	return o.config
}

func fromOAuthToken(tok *oauth2.Token) model.GoogleToken {
	gt := model.GoogleToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		gt.Expiry = &expiry
	}
	return gt
}

func toOAuthToken(u *model.User) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  u.GoogleAccessToken,
		RefreshToken: u.GoogleRefreshToken,
		TokenType:    "Bearer",
	}
	if u.GoogleTokenExpiry != nil {
		tok.Expiry = *u.GoogleTokenExpiry
	}
	return tok
}
