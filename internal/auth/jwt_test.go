package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_SessionRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("test-secret", time.Hour, "scheduler")

	token, expires, err := issuer.IssueSession("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := issuer.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("test-secret", time.Minute, "scheduler")
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := issuer.IssueSession("user-1")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseSession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	token, _, err := NewTokenIssuer("secret-a", time.Hour, "scheduler").IssueSession("user-1")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour, "scheduler").ParseSession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_AudienceSeparation(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("test-secret", time.Hour, "scheduler")

	state, err := issuer.IssueState("user-1")
	require.NoError(t, err)

	_, err = issuer.ParseSession(state)
	assert.ErrorIs(t, err, ErrInvalidToken, "state token must not work as a session")

	claims, err := issuer.ParseState(state)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	session, _, err := issuer.IssueSession("user-1")
	require.NoError(t, err)
	_, err = issuer.ParseState(session)
	assert.ErrorIs(t, err, ErrInvalidToken, "session token must not work as OAuth state")
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "scheduler",
			Audience:  jwt.ClaimStrings{audienceSession},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("test-secret", time.Hour, "scheduler").ParseSession(unsigned)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
