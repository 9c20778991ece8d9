package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTIssuerFixesOneHourWindow(t *testing.T) {
	issuer, err := NewJWTIssuer("app-1", testSecret)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 9, 30, 15, 250, time.UTC)
	tok, err := issuer.Issue("room-1", "42", RoleHost, now)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, tok.ExpiresAt.Sub(tok.IssuedAt))
	assert.Equal(t, "app-1", tok.AppID)

	claims, err := issuer.Validate(tok.Value, now.Add(59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "room-1", claims.Channel)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, RoleHost, claims.Role)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	_, err = issuer.Validate(tok.Value, now.Add(61*time.Minute))
	assert.Error(t, err, "token must expire after one hour")
}

func TestJWTIssuerNeverReusesTokens(t *testing.T) {
	issuer, err := NewJWTIssuer("app-1", testSecret)
	require.NoError(t, err)

	now := time.Now()
	a, err := issuer.Issue("room-1", "42", RoleHost, now)
	require.NoError(t, err)
	b, err := issuer.Issue("room-1", "42", RoleHost, now)
	require.NoError(t, err)
	assert.NotEqual(t, a.Value, b.Value)
}

func TestJWTIssuerRejectsForeignSecret(t *testing.T) {
	a, err := NewJWTIssuer("app-1", testSecret)
	require.NoError(t, err)
	b, err := NewJWTIssuer("app-1", "another-secret")
	require.NoError(t, err)

	now := time.Now()
	tok, err := a.Issue("room-1", "7", RoleAudience, now)
	require.NoError(t, err)
	_, err = b.Validate(tok.Value, now)
	assert.Error(t, err)
}

func TestZegoIssuer(t *testing.T) {
	issuer, err := NewZegoIssuer(1234567, testSecret)
	require.NoError(t, err)

	now := time.Now()
	tok, err := issuer.Issue("room-1", "42", RoleAudience, now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tok.Value, "04"), "token04 values carry a version prefix")
	assert.Equal(t, "1234567", tok.AppID)
	assert.Equal(t, RoleAudience, tok.Role)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)
}

func TestZegoIssuerValidatesCredentials(t *testing.T) {
	_, err := NewZegoIssuer(0, testSecret)
	assert.Error(t, err)
	_, err = NewZegoIssuer(1, "short")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	_, err := New(ProviderZego, "not-a-number", testSecret)
	assert.Error(t, err)

	issuer, err := New(ProviderZego, "99", testSecret)
	require.NoError(t, err)
	assert.IsType(t, &ZegoIssuer{}, issuer)

	issuer, err = New(ProviderJWT, "app", testSecret)
	require.NoError(t, err)
	assert.IsType(t, &JWTIssuer{}, issuer)

	_, err = New("agora", "app", testSecret)
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{"": RoleHost, "host": RoleHost, " Audience ": RoleAudience}
	for in, want := range cases {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseRole("admin")
	assert.Error(t, err)
}
