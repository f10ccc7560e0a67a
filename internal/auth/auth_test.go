package auth

import (
	"testing"
	"time"

	"marketplace-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	s := NewService("secret", time.Hour)

	hash, err := s.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, s.CheckPassword(hash, "hunter22"))
	assert.False(t, s.CheckPassword(hash, "hunter23"))
}

func TestTokenRoundTrip(t *testing.T) {
	s := NewService("secret", time.Hour)

	token, err := s.GenerateToken(&models.User{ID: 42, Role: models.RoleSeller})
	require.NoError(t, err)

	userID, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)

	token, err := issuer.GenerateToken(&models.User{ID: 42, Role: models.RoleBuyer})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	s := NewService("secret", -time.Minute)

	token, err := s.GenerateToken(&models.User{ID: 42, Role: models.RoleBuyer})
	require.NoError(t, err)

	_, err = s.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	s := NewService("secret", time.Hour)

	_, err := s.ParseToken("not.a.token")
	assert.Error(t, err)
}
