package collab

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
	NewCollabService(cfg).SetupRoutes(app)
	return app, utils.NewJWTService(cfg.JWTSecret)
}

func authedRequest(t *testing.T, jwtService *utils.JWTService, method, url string, userID uuid.UUID, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")

	token, err := jwtService.GenerateToken(userID.String())
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	return req
}

func TestAcceptRequestTransaction(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	bob := testdb.CreateUser(t, "bob")
	trade := testdb.CreateTrade(t, creator, "open")
	accepted := testdb.CreateRequest(t, trade, alice, creator, "pending")
	competing := testdb.CreateRequest(t, trade, bob, creator, "pending")

	req := authedRequest(t, jwtService, "PUT", "/api/collab/requests/"+accepted.String()+"/status",
		creator, map[string]string{"status": "accepted"})
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	ctx, cancel := db.GetContext()
	defer cancel()

	// Запрос принят
	var requestStatus string
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT status FROM collaboration_requests WHERE id = $1`, accepted).Scan(&requestStatus))
	assert.Equal(t, "accepted", requestStatus)

	// Объявление перешло в работу
	var tradeStatus string
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT status FROM trades WHERE id = $1`, trade).Scan(&tradeStatus))
	assert.Equal(t, "in-progress", tradeStatus)

	// Конкурирующий запрос отклонен
	var competingStatus string
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT status FROM collaboration_requests WHERE id = $1`, competing).Scan(&competingStatus))
	assert.Equal(t, "rejected", competingStatus)

	// Чат открыт системным сообщением
	var messageCount int
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = $1`, accepted).Scan(&messageCount))
	assert.Equal(t, 1, messageCount)

	// Заявитель получил уведомление о принятии
	var notificationCount int
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND type = 'accept'`, alice).Scan(&notificationCount))
	assert.Equal(t, 1, notificationCount)
}

func TestAcceptRequestOnlyByCreator(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "open")
	request := testdb.CreateRequest(t, trade, alice, creator, "pending")

	// Заявитель не может принять собственный запрос
	req := authedRequest(t, jwtService, "PUT", "/api/collab/requests/"+request.String()+"/status",
		alice, map[string]string{"status": "accepted"})
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDuplicatePendingRequestRejected(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "open")
	testdb.CreateRequest(t, trade, alice, creator, "pending")

	req := authedRequest(t, jwtService, "POST", "/api/collab/requests/",
		alice, map[string]string{"trade_id": trade.String(), "message": "Еще раз"})
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
