package feedback

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/skilltrade-api/internal/config"
	"github.com/rajivgeraev/skilltrade-api/internal/db"
	"github.com/rajivgeraev/skilltrade-api/internal/db/testdb"
	"github.com/rajivgeraev/skilltrade-api/internal/utils"
)

func newTestApp() (*fiber.App, *utils.JWTService) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	app := fiber.New()
	NewFeedbackService(cfg).SetupRoutes(app)
	return app, utils.NewJWTService(cfg.JWTSecret)
}

func submitFeedback(t *testing.T, app *fiber.App, jwtService *utils.JWTService, userID, chatID uuid.UUID, rating string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{
		"chat_id": chatID.String(),
		"rating":  rating,
	}))

	req := httptest.NewRequest("POST", "/api/feedback/", &buf)
	req.Header.Set("Content-Type", "application/json")

	token, err := jwtService.GenerateToken(userID.String())
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	return resp
}

func reputationOf(t *testing.T, userID uuid.UUID) int {
	t.Helper()

	ctx, cancel := db.GetContext()
	defer cancel()

	var reputation int
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT reputation FROM users WHERE id = $1`, userID).Scan(&reputation))
	return reputation
}

func TestSubmitFeedbackSecondVoteConflict(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "completed")
	chat := testdb.CreateRequest(t, trade, alice, creator, "accepted")

	resp := submitFeedback(t, app, jwtService, alice, chat, "good")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1015, reputationOf(t, creator))

	// Повторная оценка того же обмена упирается в уникальный индекс
	resp = submitFeedback(t, app, jwtService, alice, chat, "excellent")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1015, reputationOf(t, creator), "репутация не должна начисляться дважды")
}

func TestSubmitFeedbackRequiresCompletedTrade(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "in-progress")
	chat := testdb.CreateRequest(t, trade, alice, creator, "accepted")

	resp := submitFeedback(t, app, jwtService, alice, chat, "good")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmitFeedbackReputationFloor(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "completed")
	chat := testdb.CreateRequest(t, trade, alice, creator, "accepted")

	ctx, cancel := db.GetContext()
	defer cancel()
	_, err := db.Pool.Exec(ctx, `UPDATE users SET reputation = 10 WHERE id = $1`, creator)
	require.NoError(t, err)

	resp := submitFeedback(t, app, jwtService, alice, chat, "poor")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// Репутация не уходит ниже нуля
	assert.Equal(t, 0, reputationOf(t, creator))
}
