package trade

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/skilltrade-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API объявлений
func (s *TradeService) SetupRoutes(app *fiber.App) {
	// Публичный маршрут для списка объявлений
	app.Get("/api/trades", s.GetPublicTrades)

	// Группа для API объявлений
	api := app.Group("/api/trades")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания объявления
	api.Post("/", s.CreateTrade)

	// Маршрут для получения списка своих объявлений
	api.Get("/my", s.GetMyTrades)

	// Маршрут для получения одного объявления по ID
	api.Get("/:id", s.GetTrade)

	// Маршрут для обновления объявления
	api.Put("/:id", s.UpdateTrade)

	// Маршрут для удаления объявления
	api.Delete("/:id", s.DeleteTrade)
}
