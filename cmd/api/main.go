package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/skilltrade-api/internal/config"
	"github.com/rajivgeraev/skilltrade-api/internal/db"
	"github.com/rajivgeraev/skilltrade-api/internal/notify"
	"github.com/rajivgeraev/skilltrade-api/internal/services/auth"
	"github.com/rajivgeraev/skilltrade-api/internal/services/chat"
	"github.com/rajivgeraev/skilltrade-api/internal/services/cloudinary"
	"github.com/rajivgeraev/skilltrade-api/internal/services/collab"
	"github.com/rajivgeraev/skilltrade-api/internal/services/deliverable"
	"github.com/rajivgeraev/skilltrade-api/internal/services/feedback"
	"github.com/rajivgeraev/skilltrade-api/internal/services/notification"
	"github.com/rajivgeraev/skilltrade-api/internal/services/trade"
	"github.com/rajivgeraev/skilltrade-api/internal/services/user"
	"github.com/rajivgeraev/skilltrade-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Применяем миграции
	if err := db.RunMigrations(cfg); err != nil {
		log.Fatalf("❌ Ошибка при применении миграций: %v", err)
	}

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "SkillTrade API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Проверка работоспособности
	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("SkillTrade backend is working!")
	})

	// WebSocket менеджер доставляет события онлайн-пользователям
	wsManager := websocket.NewManager()
	notify.SetManager(wsManager)

	// Создаём сервисы
	authService := auth.NewAuthService(cfg)
	cloudinaryService, err := cloudinary.NewCloudinaryService(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации Cloudinary: %v", err)
	}
	userService := user.NewUserService(cfg)
	tradeService := trade.NewTradeService(cfg)
	collabService := collab.NewCollabService(cfg)
	chatService := chat.NewChatService(cfg, wsManager)
	deliverableService := deliverable.NewDeliverableService(cfg, cloudinaryService)
	feedbackService := feedback.NewFeedbackService(cfg)
	notificationService := notification.NewNotificationService(cfg)

	// Регистрируем маршруты
	authService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)
	userService.SetupRoutes(app)
	tradeService.SetupRoutes(app)
	collabService.SetupRoutes(app)
	chatService.SetupRoutes(app)
	deliverableService.SetupRoutes(app)
	feedbackService.SetupRoutes(app)
	notificationService.SetupRoutes(app)

	// WebSocket слушает отдельный порт: основной сервер работает
	// поверх fasthttp и не может отдать соединение gorilla/websocket
	wsHandler := websocket.NewHandler(wsManager, authService.GetJWTService(), chat.ResolvePartner)
	go func() {
		if err := wsHandler.Serve(cfg.WSPort); err != nil {
			log.Fatalf("❌ Ошибка WebSocket сервера: %v", err)
		}
	}()

	// По сигналу закрываем WebSocket соединения и останавливаем сервер
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Останавливаем сервер...")
		wsManager.Shutdown()
		if err := app.Shutdown(); err != nil {
			log.Printf("Ошибка остановки сервера: %v", err)
		}
	}()

	// Запускаем сервер
	log.Printf("✅ SkillTrade API запущен на порту %s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("❌ Ошибка сервера: %v", err)
	}
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
