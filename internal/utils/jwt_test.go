package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecret, 42, "admin@test.com", "admin", 15)
	require.NoError(t, err)

	claims := VerifyToken(testSecret, tok.Token)
	require.NotNil(t, claims)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "admin@test.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.Type)
}

func TestRefreshTokenCarriesTypeMarker(t *testing.T) {
	tok, err := NewRefreshToken(testSecret, 7, 7)
	require.NoError(t, err)

	claims := VerifyToken(testSecret, tok.Token)
	require.NotNil(t, claims)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken(testSecret, 1, "a@b.c", "viewer", 15)
	require.NoError(t, err)
	assert.Nil(t, VerifyToken("other-secret", tok.Token))
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken(testSecret, 1, "a@b.c", "viewer", -5)
	require.NoError(t, err)
	assert.Nil(t, VerifyToken(testSecret, tok.Token))
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	assert.Nil(t, VerifyToken(testSecret, "not.a.jwt"))
	assert.Nil(t, VerifyToken(testSecret, ""))
}

func TestHashTokenStableAndDistinct(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
