package deliverable

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
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
	NewDeliverableService(cfg, nil).SetupRoutes(app)
	return app, utils.NewJWTService(cfg.JWTSecret)
}

func insertDeliverable(t *testing.T, chatID, userID uuid.UUID) {
	t.Helper()

	ctx, cancel := db.GetContext()
	defer cancel()

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO deliverables (trade_id, user_id, kind, file_url)
		VALUES ($1, $2, 'preview', 'https://example.com/work.png')
	`, chatID, userID)
	require.NoError(t, err, "не удалось создать результат работы")
}

func acceptWork(t *testing.T, app *fiber.App, jwtService *utils.JWTService, userID, chatID uuid.UUID) *http.Response {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/deliverables/"+chatID.String()+"/accept", nil)

	token, err := jwtService.GenerateToken(userID.String())
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	return resp
}

func chatState(t *testing.T, chatID, tradeID uuid.UUID) (requesterApproved, creatorApproved bool, tradeStatus string) {
	t.Helper()

	ctx, cancel := db.GetContext()
	defer cancel()

	require.NoError(t, db.Pool.QueryRow(ctx, `
		SELECT r.requester_approved, r.creator_approved, t.status
		FROM collaboration_requests r
		JOIN trades t ON t.id = r.trade_id
		WHERE r.id = $1 AND t.id = $2
	`, chatID, tradeID).Scan(&requesterApproved, &creatorApproved, &tradeStatus))
	return
}

func TestAcceptCompletesWhenBothApproved(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "in-progress")
	chat := testdb.CreateRequest(t, trade, alice, creator, "accepted")
	insertDeliverable(t, chat, alice)
	insertDeliverable(t, chat, creator)

	// Первое одобрение не завершает обмен
	resp := acceptWork(t, app, jwtService, alice, chat)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result struct {
		Completed bool `json:"completed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Completed)

	requesterApproved, creatorApproved, tradeStatus := chatState(t, chat, trade)
	assert.True(t, requesterApproved)
	assert.False(t, creatorApproved)
	assert.Equal(t, "in-progress", tradeStatus)

	// Второе одобрение завершает обмен
	resp = acceptWork(t, app, jwtService, creator, chat)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Completed)

	_, _, tradeStatus = chatState(t, chat, trade)
	assert.Equal(t, "completed", tradeStatus)
}

func TestAcceptConcurrentBothSides(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "in-progress")
	chat := testdb.CreateRequest(t, trade, alice, creator, "accepted")
	insertDeliverable(t, chat, alice)
	insertDeliverable(t, chat, creator)

	// Обе стороны одобряют одновременно: решение о завершении должно
	// приниматься по строке внутри транзакции, а не по снимку до нее
	requests := make([]*http.Request, 0, 2)
	for _, userID := range []uuid.UUID{alice, creator} {
		token, err := jwtService.GenerateToken(userID.String())
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/api/deliverables/"+chat.String()+"/accept", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		requests = append(requests, req)
	}

	var wg sync.WaitGroup
	for _, req := range requests {
		wg.Add(1)
		go func(r *http.Request) {
			defer wg.Done()
			resp, err := app.Test(r, fiber.TestConfig{Timeout: 10 * time.Second})
			if assert.NoError(t, err) {
				assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			}
		}(req)
	}
	wg.Wait()

	requesterApproved, creatorApproved, tradeStatus := chatState(t, chat, trade)
	require.True(t, requesterApproved)
	require.True(t, creatorApproved)
	assert.Equal(t, "completed", tradeStatus, "оба одобрения есть, но обмен не завершен")
}

func TestAcceptRequiresPartnerWork(t *testing.T) {
	testdb.Setup(t)
	app, jwtService := newTestApp()

	creator := testdb.CreateUser(t, "creator")
	alice := testdb.CreateUser(t, "alice")
	trade := testdb.CreateTrade(t, creator, "in-progress")
	chat := testdb.CreateRequest(t, trade, alice, creator, "accepted")
	insertDeliverable(t, chat, alice)

	// Создатель еще ничего не загрузил — одобрять нечего
	resp := acceptWork(t, app, jwtService, alice, chat)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
