package chat

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skilltrade-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для чатов
func (s *ChatService) SetupRoutes(app *fiber.App) {
	chatGroup := app.Group("/api/chats")
	chatGroup.Use(middleware.AuthMiddleware(s.jwtService))

	chatGroup.Get("/", s.GetChats)
	chatGroup.Get("/:id/messages", s.GetChatMessages)
	chatGroup.Post("/:id/messages", s.SendMessage)
}
