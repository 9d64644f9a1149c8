package trade

import (
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

func TestDeleteTradeRemovesChatNotifications(t *testing.T) {
	testdb.Setup(t)

	cfg := &config.Config{JWTSecret: "test-secret"}
	app := fiber.New()
	NewTradeService(cfg).SetupRoutes(app)
	jwtService := utils.NewJWTService(cfg.JWTSecret)

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "in-progress")
	chat := testdb.CreateRequest(t, trade, alice, creator, "accepted")

	ctx, cancel := db.GetContext()
	defer cancel()

	// Уведомление о запросе ссылается на объявление,
	// уведомление о сообщении — только на чат
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, message, trade_id)
		VALUES ($1, $2, 'collaboration_request', 'Новый запрос', $3)
	`, uuid.New(), creator, trade)
	require.NoError(t, err)

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, message, chat_id)
		VALUES ($1, $2, 'message', 'Новое сообщение', $3)
	`, uuid.New(), creator, chat)
	require.NoError(t, err)

	token, err := jwtService.GenerateToken(creator.String())
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/trades/"+trade.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Удалены и объявление, и запросы, и все связанные уведомления
	var trades, requests, notifications int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM trades`).Scan(&trades))
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM collaboration_requests`).Scan(&requests))
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&notifications))

	assert.Equal(t, 0, trades)
	assert.Equal(t, 0, requests)
	assert.Equal(t, 0, notifications, "уведомления чатов не должны оставаться после удаления объявления")
}

func TestDeleteTradeOnlyByOwner(t *testing.T) {
	testdb.Setup(t)

	cfg := &config.Config{JWTSecret: "test-secret"}
	app := fiber.New()
	NewTradeService(cfg).SetupRoutes(app)
	jwtService := utils.NewJWTService(cfg.JWTSecret)

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "open")

	token, err := jwtService.GenerateToken(alice.String())
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/trades/"+trade.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
