package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test", ExpiryMinutes: 5})

	token, err := svc.GenerateToken("driver-1", "d@example.com", RoleDriver)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "driver-1", claims.UserID)
	assert.Equal(t, RoleDriver, claims.Role)
	assert.Equal(t, "sheduled", claims.Issuer)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test", ExpiryMinutes: 5})
	other := NewJWTService(config.JWTConfig{Secret: "other", ExpiryMinutes: 5})
	expired := NewJWTService(config.JWTConfig{Secret: "test", ExpiryMinutes: -1})

	foreign, err := other.GenerateToken("u-1", "", RoleUser)
	require.NoError(t, err)
	stale, err := expired.GenerateToken("u-1", "", RoleUser)
	require.NoError(t, err)
	noUser, err := svc.GenerateToken("", "", RoleUser)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":       "not.a.token",
		"wrong secret":  foreign,
		"expired":       stale,
		"empty user id": noUser,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(tok)
			assert.Error(t, err)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer abc")
		tok, err := TokenFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "abc", tok)
	})

	t.Run("query param", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token=xyz", nil)
		tok, err := TokenFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "xyz", tok)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Basic abc")
		_, err := TokenFromRequest(r)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoToken)
	})

	t.Run("absent", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		_, err := TokenFromRequest(r)
		assert.ErrorIs(t, err, ErrNoToken)
	})
}
