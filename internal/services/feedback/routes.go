package feedback

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skilltrade-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для оценок
func (s *FeedbackService) SetupRoutes(app *fiber.App) {
	group := app.Group("/api/feedback")
	group.Use(middleware.AuthMiddleware(s.jwtService))

	group.Post("/", s.SubmitFeedback)
	group.Get("/completion/:chatId", s.GetCompletionStatus)
	group.Post("/completion/:chatId/shown", s.MarkCompletionShown)
}
