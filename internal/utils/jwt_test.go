package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndExtract(t *testing.T) {
	service := NewJWTService("test-secret")
	userID := uuid.New().String()

	token, err := service.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	extracted, err := service.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, userID, extracted)
}

func TestExtractWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-one").GenerateToken(uuid.New().String())
	require.NoError(t, err)

	_, err = NewJWTService("secret-two").ExtractUserID(token)
	assert.Error(t, err)
}

func TestExtractExpiredToken(t *testing.T) {
	service := NewJWTService("test-secret")

	claims := jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = service.ExtractUserID(token)
	assert.Error(t, err)
}

func TestExtractGarbage(t *testing.T) {
	service := NewJWTService("test-secret")

	_, err := service.ExtractUserID("not-a-token")
	assert.Error(t, err)
}
