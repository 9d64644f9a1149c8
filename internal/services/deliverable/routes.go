package deliverable

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skilltrade-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для результатов работы
func (s *DeliverableService) SetupRoutes(app *fiber.App) {
	group := app.Group("/api/deliverables")
	group.Use(middleware.AuthMiddleware(s.jwtService))

	group.Post("/", s.CreateDeliverable)
	group.Get("/:chatId", s.GetBoard)
	group.Post("/:chatId/accept", s.Accept)
	group.Post("/:chatId/request-changes", s.RequestChanges)
	group.Delete("/:id", s.DeleteDeliverable)
}
