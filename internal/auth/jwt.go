package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token audiences keep session and OAuth state tokens from being swapped.
const (
	audienceSession = "session"
	audienceOAuth   = "google-oauth-state"

	stateTTL = 10 * time.Minute
)

// ErrInvalidToken is returned for any malformed, expired or mis-signed token.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims issued by TokenIssuer.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer for session tokens valid for ttl.
func NewTokenIssuer(secret string, ttl time.Duration, issuer string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

// IssueSession returns a signed session token for userID and its expiry.
func (i *TokenIssuer) IssueSession(userID string) (string, time.Time, error) {
	return i.issue(userID, audienceSession, i.ttl)
}

// ParseSession validates a session token and returns its claims.
func (i *TokenIssuer) ParseSession(raw string) (*Claims, error) {
	return i.parse(raw, audienceSession)
}

// IssueState returns a short-lived token used as the OAuth state parameter.
func (i *TokenIssuer) IssueState(userID string) (string, error) {
	token, _, err := i.issue(userID, audienceOAuth, stateTTL)
	return token, err
}

// ParseState validates an OAuth state token.
func (i *TokenIssuer) ParseState(raw string) (*Claims, error) {
	return i.parse(raw, audienceOAuth)
}

func (i *TokenIssuer) issue(userID, audience string, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(ttl)

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (i *TokenIssuer) parse(raw, audience string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	},
		jwt.WithAudience(audience),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
