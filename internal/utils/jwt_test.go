package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("test-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestJWTManager_GenerateAndValidateAccessToken(t *testing.T) {
	jm := newTestJWTManager()

	token, err := jm.GenerateAccessToken(42, "satoshi")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "satoshi", claims.Username)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, "hodl-up", claims.Issuer)
}

func TestJWTManager_GenerateRefreshToken(t *testing.T) {
	jm := newTestJWTManager()

	token, err := jm.GenerateRefreshToken(42)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "refresh", claims.TokenType)
	assert.Empty(t, claims.Username)
}

func TestJWTManager_ValidateToken_WrongSecret(t *testing.T) {
	jm := newTestJWTManager()
	other := NewJWTManager("other-secret", 15*time.Minute, time.Hour)

	token, err := jm.GenerateAccessToken(1, "alice")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_ValidateToken_Expired(t *testing.T) {
	jm := NewJWTManager("test-secret", -time.Minute, time.Hour)

	token, err := jm.GenerateAccessToken(1, "alice")
	require.NoError(t, err)

	_, err = jm.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_ValidateToken_Garbage(t *testing.T) {
	jm := newTestJWTManager()

	_, err := jm.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestJWTManager_RefreshAccessToken(t *testing.T) {
	jm := newTestJWTManager()

	refresh, err := jm.GenerateRefreshToken(7)
	require.NoError(t, err)

	access, err := jm.RefreshAccessToken(refresh, "bob")
	require.NoError(t, err)

	claims, err := jm.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "bob", claims.Username)
	assert.Equal(t, "access", claims.TokenType)
}

func TestJWTManager_RefreshAccessToken_RejectsAccessToken(t *testing.T) {
	jm := newTestJWTManager()

	access, err := jm.GenerateAccessToken(7, "bob")
	require.NoError(t, err)

	_, err = jm.RefreshAccessToken(access, "bob")
	assert.Error(t, err)
}

func TestJWTManager_GetTokenExpiry(t *testing.T) {
	jm := newTestJWTManager()

	assert.Equal(t, 15*time.Minute, jm.GetTokenExpiry("access"))
	assert.Equal(t, 7*24*time.Hour, jm.GetTokenExpiry("refresh"))
}
