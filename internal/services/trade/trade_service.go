package trade

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/skilltrade-api/internal/config"
	"github.com/rajivgeraev/skilltrade-api/internal/db"
	"github.com/rajivgeraev/skilltrade-api/internal/models"
	"github.com/rajivgeraev/skilltrade-api/internal/utils"
)

// TradeService представляет сервис для работы с объявлениями об обмене услугами
type TradeService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewTradeService создает новый экземпляр TradeService
func NewTradeService(cfg *config.Config) *TradeService {
	return &TradeService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// tradeInput представляет данные объявления из запроса
type tradeInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Difficulty    string   `json:"difficulty"`
	ServiceGiven  string   `json:"service_given"`
	ServiceWanted string   `json:"service_wanted"`
	Tags          []string `json:"tags"`
	ImageURL      string   `json:"image_url"`
}

// validateTradeInput проверяет обязательные поля объявления.
// Возвращает пустую строку, если ошибок нет.
func validateTradeInput(in tradeInput) string {
	if strings.TrimSpace(in.Name) == "" {
		return "Необходимо указать название объявления"
	}
	if strings.TrimSpace(in.Description) == "" {
		return "Необходимо указать описание объявления"
	}
	switch in.Difficulty {
	case "beginner", "intermediate", "advanced":
	default:
		return "Недопустимый уровень сложности"
	}
	if strings.TrimSpace(in.ServiceGiven) == "" {
		return "Необходимо указать предлагаемую услугу"
	}
	if strings.TrimSpace(in.ServiceWanted) == "" {
		return "Необходимо указать желаемую услугу"
	}
	return ""
}

// CreateTrade создает новое объявление со статусом open
func (s *TradeService) CreateTrade(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	creatorID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData tradeInput
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if msg := validateTradeInput(requestData); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	if requestData.Tags == nil {
		requestData.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(requestData.Tags)

	ctx, cancel := db.GetContext()
	defer cancel()

	tradeID := uuid.New()
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO trades (id, creator_id, name, description, difficulty, service_given, service_wanted, tags, image_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'open')
	`, tradeID, creatorID, requestData.Name, requestData.Description, requestData.Difficulty,
		requestData.ServiceGiven, requestData.ServiceWanted, tagsJSON, requestData.ImageURL)

	if err != nil {
		log.Printf("Ошибка создания объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения объявления"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"trade_id": tradeID,
		"message":  "Объявление успешно создано",
	})
}

// GetPublicTrades возвращает публичный список объявлений с фильтрами
func (s *TradeService) GetPublicTrades(c fiber.Ctx) error {
	status := c.Query("status", "open")
	difficulty := c.Query("difficulty", "")
	tag := c.Query("tag", "")

	ctx, cancel := db.GetContext()
	defer cancel()

	query := `
		SELECT t.id, t.creator_id, t.name, t.description, t.difficulty,
		       t.service_given, t.service_wanted, t.tags, t.image_url, t.status,
		       t.created_at, t.updated_at
		FROM trades t
		WHERE 1=1
	`
	args := []interface{}{}

	if status != "all" {
		args = append(args, status)
		query += ` AND t.status = $` + strconv.Itoa(len(args))
	}
	if difficulty != "" {
		args = append(args, difficulty)
		query += ` AND t.difficulty = $` + strconv.Itoa(len(args))
	}
	if tag != "" {
		args = append(args, tag)
		query += ` AND t.tags ? $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY t.created_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Ошибка запроса объявлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}
	defer rows.Close()

	trades := scanTrades(ctx, rows, true)

	return c.JSON(fiber.Map{
		"trades": trades,
		"count":  len(trades),
	})
}

// GetMyTrades возвращает объявления текущего пользователя
func (s *TradeService) GetMyTrades(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT t.id, t.creator_id, t.name, t.description, t.difficulty,
		       t.service_given, t.service_wanted, t.tags, t.image_url, t.status,
		       t.created_at, t.updated_at
		FROM trades t
		WHERE t.creator_id = $1
		ORDER BY t.created_at DESC
	`, userUUID)

	if err != nil {
		log.Printf("Ошибка запроса объявлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}
	defer rows.Close()

	trades := scanTrades(ctx, rows, false)

	return c.JSON(fiber.Map{
		"trades": trades,
		"count":  len(trades),
	})
}

// GetTrade возвращает одно объявление по ID
func (s *TradeService) GetTrade(c fiber.Ctx) error {
	tradeID := c.Params("id")

	tradeUUID, err := uuid.Parse(tradeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	trade, err := getTrade(ctx, tradeUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	trade.Creator = db.GetUserInfo(ctx, trade.CreatorID)

	return c.JSON(fiber.Map{"trade": trade})
}

// UpdateTrade обновляет объявление (только владелец, не после завершения)
func (s *TradeService) UpdateTrade(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	tradeID := c.Params("id")

	tradeUUID, err := uuid.Parse(tradeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData tradeInput
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if msg := validateTradeInput(requestData); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var creatorID uuid.UUID
	var status string
	err = db.Pool.QueryRow(ctx, `SELECT creator_id, status FROM trades WHERE id = $1`, tradeUUID).Scan(&creatorID, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	if creatorID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к редактированию этого объявления"})
	}

	if status == models.TradeStatusCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя редактировать завершенное объявление"})
	}

	if requestData.Tags == nil {
		requestData.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(requestData.Tags)

	_, err = db.Pool.Exec(ctx, `
		UPDATE trades
		SET name = $1, description = $2, difficulty = $3, service_given = $4,
		    service_wanted = $5, tags = $6, image_url = $7, updated_at = NOW()
		WHERE id = $8
	`, requestData.Name, requestData.Description, requestData.Difficulty,
		requestData.ServiceGiven, requestData.ServiceWanted, tagsJSON, requestData.ImageURL, tradeUUID)

	if err != nil {
		log.Printf("Ошибка обновления объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления объявления"})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"trade_id": tradeUUID,
		"message":  "Объявление успешно обновлено",
	})
}

// DeleteTrade удаляет объявление владельца вместе со связанными данными
func (s *TradeService) DeleteTrade(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	tradeID := c.Params("id")

	tradeUUID, err := uuid.Parse(tradeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var creatorID uuid.UUID
	err = db.Pool.QueryRow(ctx, `SELECT creator_id FROM trades WHERE id = $1`, tradeUUID).Scan(&creatorID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Printf("Ошибка запроса объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	if creatorID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к удалению этого объявления"})
	}

	// Начинаем транзакцию: уведомления по объявлению не связаны FK,
	// их нужно удалить вместе с объявлением
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM notifications WHERE trade_id = $1`, tradeUUID)
	if err != nil {
		log.Printf("Ошибка удаления уведомлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления объявления"})
	}

	// Уведомления о сообщениях и результатах ссылаются только на чат
	_, err = tx.Exec(ctx, `
		DELETE FROM notifications
		WHERE chat_id IN (SELECT id FROM collaboration_requests WHERE trade_id = $1)
	`, tradeUUID)
	if err != nil {
		log.Printf("Ошибка удаления уведомлений чатов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления объявления"})
	}

	// Запросы, сообщения и результаты работы удаляются каскадно
	_, err = tx.Exec(ctx, `DELETE FROM trades WHERE id = $1`, tradeUUID)
	if err != nil {
		log.Printf("Ошибка удаления объявления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления объявления"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Объявление успешно удалено",
	})
}

// getTrade получает объявление по ID
func getTrade(ctx context.Context, tradeID uuid.UUID) (*models.Trade, error) {
	var trade models.Trade
	var tagsData []byte

	err := db.Pool.QueryRow(ctx, `
		SELECT id, creator_id, name, description, difficulty,
		       service_given, service_wanted, tags, image_url, status,
		       created_at, updated_at
		FROM trades WHERE id = $1
	`, tradeID).Scan(
		&trade.ID, &trade.CreatorID, &trade.Name, &trade.Description, &trade.Difficulty,
		&trade.ServiceGiven, &trade.ServiceWanted, &tagsData, &trade.ImageURL, &trade.Status,
		&trade.CreatedAt, &trade.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tagsData, &trade.Tags); err != nil {
		trade.Tags = []string{}
	}

	return &trade, nil
}

// scanTrades обрабатывает строки результата запроса объявлений
func scanTrades(ctx context.Context, rows pgx.Rows, withCreator bool) []models.Trade {
	var trades []models.Trade
	for rows.Next() {
		var trade models.Trade
		var tagsData []byte

		if err := rows.Scan(
			&trade.ID, &trade.CreatorID, &trade.Name, &trade.Description, &trade.Difficulty,
			&trade.ServiceGiven, &trade.ServiceWanted, &tagsData, &trade.ImageURL, &trade.Status,
			&trade.CreatedAt, &trade.UpdatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования строки: %v", err)
			continue
		}

		if err := json.Unmarshal(tagsData, &trade.Tags); err != nil {
			trade.Tags = []string{}
		}

		trades = append(trades, trade)
	}

	if withCreator {
		for i := range trades {
			trades[i].Creator = db.GetUserInfo(ctx, trades[i].CreatorID)
		}
	}

	return trades
}
