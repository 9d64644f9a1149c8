package collab

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/skilltrade-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API запросов на совместную работу
func (s *CollabService) SetupRoutes(app *fiber.App) {
	// Группа для API запросов
	api := app.Group("/api/collab/requests")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания запроса
	api.Post("/", s.CreateRequest)

	// Маршрут для получения списка запросов
	api.Get("/", s.GetMyRequests)

	// Маршрут для обновления статуса запроса
	api.Put("/:id/status", s.UpdateRequestStatus)
}
