package cloudinary

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/skilltrade-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для загрузки файлов
func (s *CloudinaryService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для получения параметров загрузки
	protected.Get("/upload/params", s.GenerateUploadParams)
}
