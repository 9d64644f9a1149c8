package feedback

import (
	"errors"
	"log"
	"strconv"

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

// FeedbackService представляет сервис оценок по итогам обмена
type FeedbackService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewFeedbackService создает новый экземпляр FeedbackService
func NewFeedbackService(cfg *config.Config) *FeedbackService {
	return &FeedbackService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// eloChange возвращает изменение репутации для данной оценки
func eloChange(rating string) (int, bool) {
	switch rating {
	case models.RatingExcellent:
		return 25, true
	case models.RatingGood:
		return 15, true
	case models.RatingNeutral:
		return 5, true
	case models.RatingPoor:
		return -15, true
	default:
		return 0, false
	}
}

// SubmitFeedback сохраняет оценку партнера и обновляет его репутацию
func (s *FeedbackService) SubmitFeedback(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		ChatID string `json:"chat_id"`
		Rating string `json:"rating"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка чтения тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	chatUUID, err := uuid.Parse(requestData.ChatID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	delta, ok := eloChange(requestData.Rating)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимая оценка"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Оценить партнера можно только по завершенному обмену
	var requesterID, creatorID uuid.UUID
	var tradeName, tradeStatus string
	err = db.Pool.QueryRow(ctx, `
		SELECT r.requester_id, r.creator_id, t.name, t.status
		FROM collaboration_requests r
		JOIN trades t ON t.id = r.trade_id
		WHERE r.id = $1 AND r.status = 'accepted' AND (r.requester_id = $2 OR r.creator_id = $2)
	`, chatUUID, userUUID).Scan(&requesterID, &creatorID, &tradeName, &tradeStatus)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому обмену"})
		}
		log.Printf("Ошибка проверки доступа: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	if tradeStatus != models.TradeStatusCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Обмен еще не завершен"})
	}

	ratedID := requesterID
	if ratedID == userUUID {
		ratedID = creatorID
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	feedbackID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO trade_feedback (id, trade_id, rater_id, rated_id, rating, elo_change, trade_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, feedbackID, chatUUID, userUUID, ratedID, requestData.Rating, delta, tradeName)

	if err != nil {
		// Уникальный индекс не дает оценить один обмен дважды
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Вы уже оценили этот обмен"})
		}
		log.Printf("Ошибка сохранения оценки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения оценки"})
	}

	// Репутация не опускается ниже нуля
	var newReputation int
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET reputation = GREATEST(0, reputation + $1), last_reputation_update = NOW(), updated_at = NOW()
		WHERE id = $2
		RETURNING reputation
	`, delta, ratedID).Scan(&newReputation)

	if err != nil {
		log.Printf("Ошибка обновления репутации: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления репутации"})
	}

	sign := "+"
	if delta < 0 {
		sign = ""
	}

	notification := models.Notification{
		UserID:     ratedID,
		Type:       models.NotificationTradeFeedback,
		Message:    "Ваша работа по «" + tradeName + "» оценена: " + sign + strconv.Itoa(delta) + " к репутации",
		ChatID:     &chatUUID,
		FromUserID: &userUUID,
	}

	if err = notify.Insert(ctx, tx, &notification); err != nil {
		log.Printf("Ошибка создания уведомления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения оценки"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	notify.Push(notification)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"feedback_id": feedbackID,
		"elo_change":  delta,
	})
}

// GetCompletionStatus возвращает состояние завершения обмена для чата
func (s *FeedbackService) GetCompletionStatus(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	chatID := c.Params("chatId")

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

	var tradeStatus string
	var completionShown bool
	err = db.Pool.QueryRow(ctx, `
		SELECT t.status, r.completion_shown
		FROM collaboration_requests r
		JOIN trades t ON t.id = r.trade_id
		WHERE r.id = $1 AND r.status = 'accepted' AND (r.requester_id = $2 OR r.creator_id = $2)
	`, chatUUID, userUUID).Scan(&tradeStatus, &completionShown)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
		}
		log.Printf("Ошибка запроса состояния: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	var rated bool
	err = db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM trade_feedback WHERE trade_id = $1 AND rater_id = $2)
	`, chatUUID, userUUID).Scan(&rated)

	if err != nil {
		log.Printf("Ошибка проверки оценки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	return c.JSON(fiber.Map{
		"completed":        tradeStatus == models.TradeStatusCompleted,
		"completion_shown": completionShown,
		"rated":            rated,
	})
}

// MarkCompletionShown отмечает, что пользователю показано окно завершения обмена
func (s *FeedbackService) MarkCompletionShown(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	chatID := c.Params("chatId")

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

	result, err := db.Pool.Exec(ctx, `
		UPDATE collaboration_requests SET completion_shown = true, updated_at = NOW()
		WHERE id = $1 AND status = 'accepted' AND (requester_id = $2 OR creator_id = $2)
	`, chatUUID, userUUID)

	if err != nil {
		log.Printf("Ошибка обновления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	if result.RowsAffected() == 0 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
	}

	return c.JSON(fiber.Map{"success": true})
}
