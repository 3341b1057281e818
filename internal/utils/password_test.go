package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("AdminTest123!", 4)
	require.NoError(t, err)
	h2, err := HashPassword("AdminTest123!", 4)
	require.NoError(t, err)

	// bcrypt salts every hash; two hashes of the same plaintext differ.
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPassword(t *testing.T) {
	h, err := HashPassword("secret", 4)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(h, "secret"))
	assert.False(t, VerifyPassword(h, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "secret"))
}
