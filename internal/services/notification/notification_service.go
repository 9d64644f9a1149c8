package notification

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/skilltrade-api/internal/config"
	"github.com/rajivgeraev/skilltrade-api/internal/db"
	"github.com/rajivgeraev/skilltrade-api/internal/models"
	"github.com/rajivgeraev/skilltrade-api/internal/notify"
	"github.com/rajivgeraev/skilltrade-api/internal/utils"
)

// NotificationService представляет сервис для работы с уведомлениями
type NotificationService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(cfg *config.Config) *NotificationService {
	return &NotificationService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetNotifications возвращает уведомления пользователя, новые первыми
func (s *NotificationService) GetNotifications(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, type, message, trade_id, chat_id, from_user_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 100
	`, userUUID)

	if err != nil {
		log.Printf("Ошибка запроса уведомлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения уведомлений"})
	}
	defer rows.Close()

	notifications := []models.Notification{}
	unreadCount := 0
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Message,
			&n.TradeID, &n.ChatID, &n.FromUserID,
			&n.Read, &n.CreatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования уведомления: %v", err)
			continue
		}

		if !n.Read {
			unreadCount++
		}
		notifications = append(notifications, n)
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"unread_count":  unreadCount,
		"count":         len(notifications),
	})
}

// MarkAllRead отмечает все уведомления пользователя как прочитанные
func (s *NotificationService) MarkAllRead(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	_, err = db.Pool.Exec(ctx, `
		UPDATE notifications SET read = true WHERE user_id = $1 AND read = false
	`, userUUID)

	if err != nil {
		log.Printf("Ошибка обновления уведомлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления уведомлений"})
	}

	// Сообщаем открытым соединениям, что непрочитанных больше нет
	notify.PushUnreadCount(userUUID)

	return c.JSON(fiber.Map{"success": true})
}

// DeleteNotification удаляет уведомление пользователя
func (s *NotificationService) DeleteNotification(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	notificationID := c.Params("id")

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	notificationUUID, err := uuid.Parse(notificationID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID уведомления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := db.Pool.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1 AND user_id = $2
	`, notificationUUID, userUUID)

	if err != nil {
		log.Printf("Ошибка удаления уведомления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления уведомления"})
	}

	if result.RowsAffected() == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Уведомление не найдено"})
	}

	return c.JSON(fiber.Map{"success": true})
}
