package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/skilltrade-api/internal/utils"
)

func newTestApp(jwtService *utils.JWTService) *fiber.App {
	app := fiber.New()
	app.Use(AuthMiddleware(jwtService))
	app.Get("/protected", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userID")})
	})
	return app
}

func TestMissingAuthorizationHeader(t *testing.T) {
	app := newTestApp(utils.NewJWTService("test-secret"))

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestInvalidHeaderFormat(t *testing.T) {
	app := newTestApp(utils.NewJWTService("test-secret"))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestInvalidToken(t *testing.T) {
	app := newTestApp(utils.NewJWTService("test-secret"))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestValidToken(t *testing.T) {
	jwtService := utils.NewJWTService("test-secret")
	app := newTestApp(jwtService)

	token, err := jwtService.GenerateToken(uuid.New().String())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTokenWithNonUUIDUserID(t *testing.T) {
	jwtService := utils.NewJWTService("test-secret")
	app := newTestApp(jwtService)

	token, err := jwtService.GenerateToken("not-a-uuid")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
