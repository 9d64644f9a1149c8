package notification

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skilltrade-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для уведомлений
func (s *NotificationService) SetupRoutes(app *fiber.App) {
	group := app.Group("/api/notifications")
	group.Use(middleware.AuthMiddleware(s.jwtService))

	group.Get("/", s.GetNotifications)
	group.Post("/read-all", s.MarkAllRead)
	group.Delete("/:id", s.DeleteNotification)
}
