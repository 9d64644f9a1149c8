package chat

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/skilltrade-api/internal/config"
	"github.com/rajivgeraev/skilltrade-api/internal/db"
	"github.com/rajivgeraev/skilltrade-api/internal/models"
	"github.com/rajivgeraev/skilltrade-api/internal/notify"
	"github.com/rajivgeraev/skilltrade-api/internal/utils"
	"github.com/rajivgeraev/skilltrade-api/internal/websocket"
)

// ChatService представляет сервис для работы с чатами.
// Чатом является принятый запрос на совместную работу.
type ChatService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	ws         *websocket.Manager
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(cfg *config.Config, ws *websocket.Manager) *ChatService {
	return &ChatService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		ws:         ws,
	}
}

// ResolvePartner возвращает ID собеседника в чате. Используется WebSocket
// слоем для пересылки событий набора текста.
func ResolvePartner(chatID, senderID string) (string, error) {
	chatUUID, err := uuid.Parse(chatID)
	if err != nil {
		return "", err
	}

	senderUUID, err := uuid.Parse(senderID)
	if err != nil {
		return "", err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var requesterID, creatorID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		SELECT requester_id, creator_id FROM collaboration_requests
		WHERE id = $1 AND status = 'accepted' AND (requester_id = $2 OR creator_id = $2)
	`, chatUUID, senderUUID).Scan(&requesterID, &creatorID)

	if err != nil {
		return "", err
	}

	if requesterID == senderUUID {
		return creatorID.String(), nil
	}
	return requesterID.String(), nil
}

// chatAccess проверяет доступ пользователя к чату и возвращает ID собеседника
func chatAccess(ctx context.Context, chatID, userID uuid.UUID) (partnerID uuid.UUID, err error) {
	var requesterID, creatorID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		SELECT requester_id, creator_id FROM collaboration_requests
		WHERE id = $1 AND status = 'accepted' AND (requester_id = $2 OR creator_id = $2)
	`, chatID, userID).Scan(&requesterID, &creatorID)

	if err != nil {
		return uuid.Nil, err
	}

	if requesterID == userID {
		return creatorID, nil
	}
	return requesterID, nil
}

// GetChats возвращает список чатов пользователя
func (s *ChatService) GetChats(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Чат — принятый запрос; последнее сообщение и количество
	// непрочитанных считаются по таблице сообщений
	query := `
		SELECT r.id, r.trade_id, r.requester_id, r.creator_id, t.name,
		       lm.text, lm.file_name, lm.created_at,
		       COUNT(m.id) FILTER (WHERE m.sender_id != $1 AND m.is_read = false) AS unread_count
		FROM collaboration_requests r
		JOIN trades t ON t.id = r.trade_id
		LEFT JOIN messages m ON m.chat_id = r.id
		LEFT JOIN LATERAL (
			SELECT text, file_name, created_at
			FROM messages
			WHERE chat_id = r.id
			ORDER BY created_at DESC
			LIMIT 1
		) lm ON true
		WHERE r.status = 'accepted' AND (r.requester_id = $1 OR r.creator_id = $1)
		GROUP BY r.id, r.trade_id, r.requester_id, r.creator_id, t.name, lm.text, lm.file_name, lm.created_at
		ORDER BY lm.created_at DESC NULLS LAST, r.created_at DESC
	`

	rows, err := db.Pool.Query(ctx, query, userUUID)
	if err != nil {
		log.Printf("Ошибка запроса чатов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения чатов"})
	}
	defer rows.Close()

	var chats []models.ChatSummary
	for rows.Next() {
		var chat models.ChatSummary
		var requesterID, creatorID uuid.UUID
		var lastText, lastFileName pgtype.Text
		var lastTime *time.Time

		if err := rows.Scan(
			&chat.ID, &chat.TradeID, &requesterID, &creatorID, &chat.TradeName,
			&lastText, &lastFileName, &lastTime, &chat.UnreadCount,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		if lastText.Valid && lastText.String != "" {
			chat.LastMessageText = lastText.String
		} else if lastFileName.Valid {
			chat.LastMessageText = "📎 " + lastFileName.String
		}
		chat.LastMessageTime = lastTime

		// Получаем данные о собеседнике
		partnerID := requesterID
		if partnerID == userUUID {
			partnerID = creatorID
		}
		chat.Partner = db.GetUserInfo(ctx, partnerID)

		chats = append(chats, chat)
	}

	return c.JSON(fiber.Map{
		"chats": chats,
		"count": len(chats),
	})
}

// GetChatMessages возвращает сообщения конкретного чата
func (s *ChatService) GetChatMessages(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	chatID := c.Params("id")

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	chatUUID, err := uuid.Parse(chatID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if _, err = chatAccess(ctx, chatUUID, userUUID); err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
		}
		log.Printf("Ошибка проверки доступа к чату: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки доступа к чату"})
	}

	// Ограничение количества сообщений
	limit := 50

	// Обрабатываем пагинацию
	before := c.Query("before")
	var query string
	var queryArgs []interface{}

	if before != "" {
		beforeUUID, err := uuid.Parse(before)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID сообщения"})
		}

		query = `
			SELECT m.id, m.chat_id, m.sender_id, m.text, m.file_url, m.file_name, m.file_type, m.is_read, m.created_at
			FROM messages m
			WHERE m.chat_id = $1 AND m.created_at < (SELECT created_at FROM messages WHERE id = $2)
			ORDER BY m.created_at DESC
			LIMIT $3
		`
		queryArgs = []interface{}{chatUUID, beforeUUID, limit}
	} else {
		query = `
			SELECT m.id, m.chat_id, m.sender_id, m.text, m.file_url, m.file_name, m.file_type, m.is_read, m.created_at
			FROM messages m
			WHERE m.chat_id = $1
			ORDER BY m.created_at DESC
			LIMIT $2
		`
		queryArgs = []interface{}{chatUUID, limit}
	}

	rows, err := db.Pool.Query(ctx, query, queryArgs...)
	if err != nil {
		log.Printf("Ошибка запроса сообщений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения сообщений"})
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var text, fileURL, fileName, fileType pgtype.Text

		if err := rows.Scan(
			&msg.ID, &msg.ChatID, &msg.SenderID,
			&text, &fileURL, &fileName, &fileType,
			&msg.IsRead, &msg.CreatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования сообщения: %v", err)
			continue
		}

		if text.Valid {
			msg.Text = text.String
		}
		if fileURL.Valid {
			msg.FileURL = fileURL.String
		}
		if fileName.Valid {
			msg.FileName = fileName.String
		}
		if fileType.Valid {
			msg.FileType = fileType.String
		}

		msg.Sender = db.GetUserInfo(ctx, msg.SenderID)
		messages = append(messages, msg)
	}

	// Отмечаем сообщения собеседника как прочитанные
	_, err = db.Pool.Exec(ctx, `
		UPDATE messages
		SET is_read = true
		WHERE chat_id = $1 AND sender_id != $2 AND is_read = false
	`, chatUUID, userUUID)

	if err != nil {
		log.Printf("Ошибка обновления статуса прочтения: %v", err)
		// Не возвращаем ошибку, т.к. основная функциональность выполнена
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"has_more": len(messages) == limit,
	})
}

// SendMessage отправляет новое сообщение (текст или вложение)
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	chatID := c.Params("id")

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	chatUUID, err := uuid.Parse(chatID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	var requestData struct {
		Text     string `json:"text"`
		FileURL  string `json:"file_url"`
		FileName string `json:"file_name"`
		FileType string `json:"file_type"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка чтения тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	requestData.Text = strings.TrimSpace(requestData.Text)
	if requestData.Text == "" && requestData.FileURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Сообщение должно содержать текст или вложение"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	partnerID, err := chatAccess(ctx, chatUUID, userUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
		}
		log.Printf("Ошибка проверки доступа к чату: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки доступа к чату"})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	messageID := uuid.New()
	now := time.Now()

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, text, file_url, file_name, file_type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, messageID, chatUUID, userUUID, requestData.Text, requestData.FileURL,
		requestData.FileName, requestData.FileType, now)

	if err != nil {
		log.Printf("Ошибка создания сообщения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения сообщения"})
	}

	// Уведомление о сообщении создается только если у собеседника
	// еще нет непрочитанного уведомления по этому чату
	var hasUnread bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND chat_id = $2 AND type = 'message' AND read = false
		)
	`, partnerID, chatUUID).Scan(&hasUnread)

	if err != nil {
		log.Printf("Ошибка проверки уведомлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	var notification *models.Notification
	if !hasUnread {
		senderInfo := db.GetUserInfo(ctx, userUUID)
		senderName := "Пользователь"
		if senderInfo != nil && senderInfo.Nickname != "" {
			senderName = senderInfo.Nickname
		}

		notification = &models.Notification{
			UserID:     partnerID,
			Type:       models.NotificationMessage,
			Message:    "Новое сообщение от " + senderName,
			ChatID:     &chatUUID,
			FromUserID: &userUUID,
		}

		if err = notify.Insert(ctx, tx, notification); err != nil {
			log.Printf("Ошибка создания уведомления: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения сообщения"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	message := models.Message{
		ID:        messageID,
		ChatID:    chatUUID,
		SenderID:  userUUID,
		Text:      requestData.Text,
		FileURL:   requestData.FileURL,
		FileName:  requestData.FileName,
		FileType:  requestData.FileType,
		IsRead:    false,
		CreatedAt: now,
		Sender:    db.GetUserInfo(ctx, userUUID),
	}

	// Доставляем сообщение собеседнику по WebSocket
	if s.ws != nil {
		payload, err := json.Marshal(message)
		if err == nil {
			s.ws.SendToUser(partnerID.String(), websocket.Event{
				Type:      websocket.EventNewMessage,
				ChatID:    chatUUID.String(),
				UserID:    userUUID.String(),
				Timestamp: now,
				Payload:   payload,
			})
		}
	}

	if notification != nil {
		notify.Push(*notification)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"success": true,
	})
}
