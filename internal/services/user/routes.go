package user

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/skilltrade-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API профилей
func (s *UserService) SetupRoutes(app *fiber.App) {
	// Группа для API профилей
	api := app.Group("/api/users")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для обновления собственного профиля
	api.Put("/me", s.UpdateProfile)

	// Маршрут для получения публичного профиля
	api.Get("/:id", s.GetPublicProfile)

	// Маршрут для рекомендации пользователя
	api.Post("/:id/endorse", s.Endorse)
}
