package collab

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rajivgeraev/skilltrade-api/internal/config"
	"github.com/rajivgeraev/skilltrade-api/internal/db"
	"github.com/rajivgeraev/skilltrade-api/internal/models"
	"github.com/rajivgeraev/skilltrade-api/internal/notify"
	"github.com/rajivgeraev/skilltrade-api/internal/utils"
)

// CollabService представляет сервис для работы с запросами на совместную работу
type CollabService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewCollabService создает новый экземпляр CollabService
func NewCollabService(cfg *config.Config) *CollabService {
	return &CollabService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateRequest создает запрос на совместную работу по объявлению
func (s *CollabService) CreateRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		TradeID string `json:"trade_id"`
		Message string `json:"message"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.TradeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID объявления не указан"})
	}

	if strings.TrimSpace(requestData.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо описать, что вы хотите получить взамен"})
	}

	tradeUUID, err := uuid.Parse(requestData.TradeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Проверяем, что объявление существует и открыто
	var creatorID uuid.UUID
	var tradeName, tradeStatus string
	err = db.Pool.QueryRow(ctx, `
		SELECT creator_id, name, status FROM trades WHERE id = $1
	`, tradeUUID).Scan(&creatorID, &tradeName, &tradeStatus)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки объявления"})
	}

	// Нельзя откликнуться на собственное объявление
	if creatorID == requesterID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя откликнуться на собственное объявление"})
	}

	if tradeStatus != models.TradeStatusOpen {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Объявление больше не принимает отклики"})
	}

	// Проверяем, нет ли уже ожидающего запроса от этого пользователя
	var existingCount int
	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM collaboration_requests
		WHERE trade_id = $1 AND requester_id = $2 AND status = 'pending'
	`, tradeUUID, requesterID).Scan(&existingCount)

	if err != nil {
		log.Printf("Ошибка проверки существующих запросов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка проверки существующих запросов"})
	}

	if existingCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Вы уже отправили запрос по этому объявлению"})
	}

	// Начинаем транзакцию: запрос и уведомление создателю записываются вместе
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	requestID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO collaboration_requests (id, trade_id, requester_id, creator_id, message, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
	`, requestID, tradeUUID, requesterID, creatorID, requestData.Message)

	if err != nil {
		// Частичный уникальный индекс страхует от параллельного дубликата
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Вы уже отправили запрос по этому объявлению"})
		}
		log.Printf("Ошибка создания запроса: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения запроса"})
	}

	requesterInfo := db.GetUserInfo(ctx, requesterID)
	requesterName := "Пользователь"
	if requesterInfo != nil && requesterInfo.Nickname != "" {
		requesterName = requesterInfo.Nickname
	}

	notification := models.Notification{
		UserID:     creatorID,
		Type:       models.NotificationCollabRequest,
		Message:    requesterName + " хочет совместную работу по объявлению «" + tradeName + "»",
		TradeID:    &tradeUUID,
		FromUserID: &requesterID,
	}

	if err = notify.Insert(ctx, tx, &notification); err != nil {
		log.Printf("Ошибка создания уведомления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения запроса"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	notify.Push(notification)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"request_id": requestID,
		"message":    "Запрос на совместную работу отправлен",
	})
}

// GetMyRequests возвращает список входящих и исходящих запросов
func (s *CollabService) GetMyRequests(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Получаем тип запросов (входящие/исходящие/все)
	requestType := c.Query("type", "all") // all, incoming, outgoing
	status := c.Query("status", "all")    // all, pending, accepted, rejected

	ctx, cancel := db.GetContext()
	defer cancel()

	baseQuery := `
		SELECT r.id, r.trade_id, r.requester_id, r.creator_id, r.message, r.status,
		       r.requester_approved, r.creator_approved, r.completion_shown,
		       r.created_at, r.updated_at
		FROM collaboration_requests r
	`

	var query string
	var args []interface{}

	switch requestType {
	case "incoming":
		query = baseQuery + ` WHERE r.creator_id = $1`
		args = []interface{}{userUUID}
	case "outgoing":
		query = baseQuery + ` WHERE r.requester_id = $1`
		args = []interface{}{userUUID}
	default:
		query = baseQuery + ` WHERE (r.creator_id = $1 OR r.requester_id = $1)`
		args = []interface{}{userUUID}
	}

	if status != "all" {
		query += ` AND r.status = $2`
		args = append(args, status)
	}

	query += ` ORDER BY r.created_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Ошибка запроса запросов на совместную работу: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запросов"})
	}
	defer rows.Close()

	var requests []models.CollaborationRequest
	for rows.Next() {
		var req models.CollaborationRequest
		if err := rows.Scan(
			&req.ID, &req.TradeID, &req.RequesterID, &req.CreatorID, &req.Message, &req.Status,
			&req.RequesterApproved, &req.CreatorApproved, &req.CompletionShown,
			&req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		req.Trade = getTradeInfo(ctx, req.TradeID)
		req.Requester = db.GetUserInfo(ctx, req.RequesterID)
		req.Creator = db.GetUserInfo(ctx, req.CreatorID)

		requests = append(requests, req)
	}

	return c.JSON(fiber.Map{
		"requests": requests,
		"count":    len(requests),
	})
}

// UpdateRequestStatus обновляет статус запроса (принятие/отклонение).
// Принятие выполняется одной транзакцией: статус запроса, статус объявления,
// отклонение остальных ожидающих запросов, системное сообщение в чат
// и уведомление откликнувшемуся.
func (s *CollabService) UpdateRequestStatus(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	requestID := c.Params("id")
	if requestID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID запроса не указан"})
	}

	var requestData struct {
		Status string `json:"status"` // accepted, rejected
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.Status != models.RequestStatusAccepted && requestData.Status != models.RequestStatusRejected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый статус запроса"})
	}

	requestUUID, err := uuid.Parse(requestID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID запроса"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var req models.CollaborationRequest
	var tradeName string
	err = db.Pool.QueryRow(ctx, `
		SELECT r.id, r.trade_id, r.requester_id, r.creator_id, r.status, t.name
		FROM collaboration_requests r
		JOIN trades t ON t.id = r.trade_id
		WHERE r.id = $1
	`, requestUUID).Scan(&req.ID, &req.TradeID, &req.RequesterID, &req.CreatorID, &req.Status, &tradeName)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Запрос не найден"})
		}
		log.Printf("Ошибка запроса: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения запроса"})
	}

	// Только создатель объявления может принять или отклонить запрос
	if req.CreatorID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Только создатель объявления может принять или отклонить запрос"})
	}

	if req.Status != models.RequestStatusPending {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Нельзя изменить статус запроса, который уже не находится в ожидании",
		})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE collaboration_requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, requestData.Status, requestUUID)

	if err != nil {
		log.Printf("Ошибка обновления статуса запроса: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления статуса запроса"})
	}

	var notification models.Notification

	if requestData.Status == models.RequestStatusAccepted {
		// Объявление переходит в работу
		_, err = tx.Exec(ctx, `
			UPDATE trades SET status = $1, updated_at = NOW() WHERE id = $2
		`, models.TradeStatusInProgress, req.TradeID)

		if err != nil {
			log.Printf("Ошибка обновления статуса объявления: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления объявления"})
		}

		// Остальные ожидающие запросы отклоняются
		_, err = tx.Exec(ctx, `
			UPDATE collaboration_requests
			SET status = 'rejected', updated_at = NOW()
			WHERE trade_id = $1 AND status = 'pending' AND id != $2
		`, req.TradeID, requestUUID)

		if err != nil {
			log.Printf("Ошибка отклонения остальных запросов: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления запросов"})
		}

		// Системное сообщение открывает чат
		now := time.Now()
		initialMessage := "Запрос принят. Вы можете обсудить детали здесь."
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (id, chat_id, sender_id, text, is_read, created_at)
			VALUES ($1, $2, $3, $4, false, $5)
		`, uuid.New(), requestUUID, req.CreatorID, initialMessage, now)

		if err != nil {
			log.Printf("Ошибка создания системного сообщения: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка создания чата"})
		}

		notification = models.Notification{
			UserID:     req.RequesterID,
			Type:       models.NotificationAccept,
			Message:    "Ваш запрос по объявлению «" + tradeName + "» принят",
			TradeID:    &req.TradeID,
			ChatID:     &req.ID,
			FromUserID: &req.CreatorID,
		}
	} else {
		notification = models.Notification{
			UserID:     req.RequesterID,
			Type:       models.NotificationCollabRequest,
			Message:    "Ваш запрос по объявлению «" + tradeName + "» отклонен",
			TradeID:    &req.TradeID,
			FromUserID: &req.CreatorID,
		}
	}

	if err = notify.Insert(ctx, tx, &notification); err != nil {
		log.Printf("Ошибка создания уведомления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения уведомления"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	notify.Push(notification)

	response := fiber.Map{
		"success":    true,
		"request_id": requestUUID,
		"status":     requestData.Status,
	}

	// Принятый запрос становится чатом
	if requestData.Status == models.RequestStatusAccepted {
		response["chat_id"] = requestUUID
	}

	return c.JSON(response)
}

// getTradeInfo получает краткую информацию об объявлении
func getTradeInfo(ctx context.Context, tradeID uuid.UUID) *models.Trade {
	var trade models.Trade

	err := db.Pool.QueryRow(ctx, `
		SELECT id, creator_id, name, difficulty, service_given, service_wanted, status
		FROM trades WHERE id = $1
	`, tradeID).Scan(
		&trade.ID, &trade.CreatorID, &trade.Name, &trade.Difficulty,
		&trade.ServiceGiven, &trade.ServiceWanted, &trade.Status,
	)

	if err != nil {
		log.Printf("Ошибка получения объявления %s: %v", tradeID, err)
		return nil
	}

	return &trade
}
