package deliverable

import (
	"context"
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
	"github.com/rajivgeraev/skilltrade-api/internal/services/cloudinary"
	"github.com/rajivgeraev/skilltrade-api/internal/utils"
)

// DeliverableService представляет сервис для работы с результатами работы
type DeliverableService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	cloudinary *cloudinary.CloudinaryService
}

// NewDeliverableService создает новый экземпляр DeliverableService
func NewDeliverableService(cfg *config.Config, cld *cloudinary.CloudinaryService) *DeliverableService {
	return &DeliverableService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		cloudinary: cld,
	}
}

// chatParticipants описывает принятый запрос, в рамках которого идет обмен работами
type chatParticipants struct {
	RequesterID       uuid.UUID
	CreatorID         uuid.UUID
	RequesterApproved bool
	CreatorApproved   bool
	TradeID           uuid.UUID
	TradeName         string
}

// getChat проверяет, что чат существует, принят и пользователь является его участником
func getChat(ctx context.Context, chatID, userID uuid.UUID) (*chatParticipants, error) {
	var chat chatParticipants
	err := db.Pool.QueryRow(ctx, `
		SELECT r.requester_id, r.creator_id, r.requester_approved, r.creator_approved, r.trade_id, t.name
		FROM collaboration_requests r
		JOIN trades t ON t.id = r.trade_id
		WHERE r.id = $1 AND r.status = 'accepted' AND (r.requester_id = $2 OR r.creator_id = $2)
	`, chatID, userID).Scan(
		&chat.RequesterID, &chat.CreatorID,
		&chat.RequesterApproved, &chat.CreatorApproved,
		&chat.TradeID, &chat.TradeName,
	)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// partner возвращает ID собеседника для данного пользователя
func (ch *chatParticipants) partner(userID uuid.UUID) uuid.UUID {
	if ch.RequesterID == userID {
		return ch.CreatorID
	}
	return ch.RequesterID
}

// approved возвращает флаг одобрения со стороны данного пользователя
func (ch *chatParticipants) approved(userID uuid.UUID) bool {
	if ch.RequesterID == userID {
		return ch.RequesterApproved
	}
	return ch.CreatorApproved
}

// approvalColumn возвращает имя колонки одобрения для данного пользователя
func (ch *chatParticipants) approvalColumn(userID uuid.UUID) string {
	if ch.RequesterID == userID {
		return "requester_approved"
	}
	return "creator_approved"
}

// CreateDeliverable загружает результат работы (файл или ссылку) в чат
func (s *DeliverableService) CreateDeliverable(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var requestData struct {
		ChatID      string `json:"chat_id"`
		Kind        string `json:"kind"`
		FileURL     string `json:"file_url"`
		FileName    string `json:"file_name"`
		FileType    string `json:"file_type"`
		Description string `json:"description"`
		PublicID    string `json:"public_id"`
		IsLink      bool   `json:"is_link"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка чтения тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	chatUUID, err := uuid.Parse(requestData.ChatID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	if requestData.Kind != models.DeliverableKindPreview && requestData.Kind != models.DeliverableKindFinal {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Недопустимый вид результата"})
	}

	requestData.FileURL = strings.TrimSpace(requestData.FileURL)
	if requestData.FileURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Необходимо указать файл или ссылку"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	chat, err := getChat(ctx, chatUUID, userUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
		}
		log.Printf("Ошибка проверки доступа к чату: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	deliverableID := uuid.New()
	now := time.Now()

	_, err = tx.Exec(ctx, `
		INSERT INTO deliverables (id, trade_id, user_id, kind, file_url, file_name, file_type, description, public_id, is_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, deliverableID, chatUUID, userUUID, requestData.Kind, requestData.FileURL,
		requestData.FileName, requestData.FileType, requestData.Description,
		requestData.PublicID, requestData.IsLink, now)

	if err != nil {
		log.Printf("Ошибка создания результата работы: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения результата"})
	}

	// Загрузка нового результата отменяет одобрение собеседника,
	// чтобы он мог посмотреть обновленную работу
	partnerID := chat.partner(userUUID)
	_, err = tx.Exec(ctx, `
		UPDATE collaboration_requests SET `+chat.approvalColumn(partnerID)+` = false, updated_at = NOW()
		WHERE id = $1
	`, chatUUID)

	if err != nil {
		log.Printf("Ошибка сброса одобрения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	senderInfo := db.GetUserInfo(ctx, userUUID)
	senderName := "Пользователь"
	if senderInfo != nil && senderInfo.Nickname != "" {
		senderName = senderInfo.Nickname
	}

	notification := models.Notification{
		UserID:     partnerID,
		Type:       models.NotificationDelivery,
		Message:    senderName + " загрузил(а) результат работы по «" + chat.TradeName + "»",
		ChatID:     &chatUUID,
		FromUserID: &userUUID,
	}

	if err = notify.Insert(ctx, tx, &notification); err != nil {
		log.Printf("Ошибка создания уведомления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения результата"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	notify.Push(notification)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"deliverable": models.Deliverable{
			ID:          deliverableID,
			TradeID:     chatUUID,
			UserID:      userUUID,
			Kind:        requestData.Kind,
			FileURL:     requestData.FileURL,
			FileName:    requestData.FileName,
			FileType:    requestData.FileType,
			Description: requestData.Description,
			PublicID:    requestData.PublicID,
			IsLink:      requestData.IsLink,
			CreatedAt:   now,
		},
		"success": true,
	})
}

// GetBoard возвращает результаты работы чата, сгруппированные по участникам
func (s *DeliverableService) GetBoard(c fiber.Ctx) error {
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

	chat, err := getChat(ctx, chatUUID, userUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
		}
		log.Printf("Ошибка проверки доступа к чату: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, trade_id, user_id, kind, file_url, file_name, file_type, description, public_id, is_link, accepted, created_at
		FROM deliverables
		WHERE trade_id = $1
		ORDER BY created_at DESC
	`, chatUUID)

	if err != nil {
		log.Printf("Ошибка запроса результатов работы: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения результатов"})
	}
	defer rows.Close()

	board := models.DeliverableBoard{
		MyPreview:      []models.Deliverable{},
		MyFinal:        []models.Deliverable{},
		PartnerPreview: []models.Deliverable{},
		PartnerFinal:   []models.Deliverable{},
	}

	var mineUploaded, partnerUploaded bool
	for rows.Next() {
		var d models.Deliverable
		var fileName, fileType, description, publicID pgtype.Text

		if err := rows.Scan(
			&d.ID, &d.TradeID, &d.UserID, &d.Kind, &d.FileURL,
			&fileName, &fileType, &description, &publicID,
			&d.IsLink, &d.Accepted, &d.CreatedAt,
		); err != nil {
			log.Printf("Ошибка сканирования результата: %v", err)
			continue
		}

		if fileName.Valid {
			d.FileName = fileName.String
		}
		if fileType.Valid {
			d.FileType = fileType.String
		}
		if description.Valid {
			d.Description = description.String
		}
		if publicID.Valid {
			d.PublicID = publicID.String
		}

		mine := d.UserID == userUUID
		if mine {
			mineUploaded = true
		} else {
			partnerUploaded = true
		}

		switch {
		case mine && d.Kind == models.DeliverableKindPreview:
			board.MyPreview = append(board.MyPreview, d)
		case mine:
			board.MyFinal = append(board.MyFinal, d)
		case d.Kind == models.DeliverableKindPreview:
			board.PartnerPreview = append(board.PartnerPreview, d)
		default:
			board.PartnerFinal = append(board.PartnerFinal, d)
		}
	}

	board.BothUploaded = mineUploaded && partnerUploaded
	board.MyApproved = chat.approved(userUUID)
	board.PartnerApproved = chat.approved(chat.partner(userUUID))

	return c.JSON(board)
}

// Accept одобряет работу собеседника. Когда оба участника одобрили
// работы друг друга, обмен считается завершенным.
func (s *DeliverableService) Accept(c fiber.Ctx) error {
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

	chat, err := getChat(ctx, chatUUID, userUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
		}
		log.Printf("Ошибка проверки доступа к чату: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	partnerID := chat.partner(userUUID)

	// Нельзя одобрить работу, пока собеседник ничего не загрузил
	var partnerHasWork bool
	err = db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM deliverables WHERE trade_id = $1 AND user_id = $2)
	`, chatUUID, partnerID).Scan(&partnerHasWork)

	if err != nil {
		log.Printf("Ошибка проверки результатов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	if !partnerHasWork {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Собеседник еще не загрузил результат работы"})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	// Решение о завершении принимается по строке, возвращенной этим же
	// UPDATE внутри транзакции: снимок, прочитанный до ее начала, может
	// не видеть одобрение второй стороны из параллельного запроса
	var requesterApproved, creatorApproved bool
	err = tx.QueryRow(ctx, `
		UPDATE collaboration_requests SET `+chat.approvalColumn(userUUID)+` = true, updated_at = NOW()
		WHERE id = $1
		RETURNING requester_approved, creator_approved
	`, chatUUID).Scan(&requesterApproved, &creatorApproved)

	if err != nil {
		log.Printf("Ошибка обновления одобрения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Отмечаем работы собеседника как принятые
	_, err = tx.Exec(ctx, `
		UPDATE deliverables SET accepted = true
		WHERE trade_id = $1 AND user_id = $2
	`, chatUUID, partnerID)

	if err != nil {
		log.Printf("Ошибка обновления результатов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	// Обе стороны одобрили — обмен завершен
	completed := requesterApproved && creatorApproved
	if completed {
		_, err = tx.Exec(ctx, `
			UPDATE trades SET status = 'completed', updated_at = NOW()
			WHERE id = $1
		`, chat.TradeID)

		if err != nil {
			log.Printf("Ошибка завершения обмена: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
		}
	}

	senderInfo := db.GetUserInfo(ctx, userUUID)
	senderName := "Пользователь"
	if senderInfo != nil && senderInfo.Nickname != "" {
		senderName = senderInfo.Nickname
	}

	message := senderName + " принял(а) вашу работу по «" + chat.TradeName + "»"
	if completed {
		message = "Обмен по «" + chat.TradeName + "» завершен. Оцените работу партнера!"
	}

	notification := models.Notification{
		UserID:     partnerID,
		Type:       models.NotificationAccept,
		Message:    message,
		ChatID:     &chatUUID,
		FromUserID: &userUUID,
	}

	if err = notify.Insert(ctx, tx, &notification); err != nil {
		log.Printf("Ошибка создания уведомления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	notify.Push(notification)

	return c.JSON(fiber.Map{
		"success":   true,
		"completed": completed,
	})
}

// RequestChanges снимает одобрение и просит собеседника доработать результат
func (s *DeliverableService) RequestChanges(c fiber.Ctx) error {
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

	chat, err := getChat(ctx, chatUUID, userUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "У вас нет доступа к этому чату"})
		}
		log.Printf("Ошибка проверки доступа к чату: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	partnerID := chat.partner(userUUID)

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE collaboration_requests SET `+chat.approvalColumn(userUUID)+` = false, updated_at = NOW()
		WHERE id = $1
	`, chatUUID)

	if err != nil {
		log.Printf("Ошибка обновления одобрения: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	_, err = tx.Exec(ctx, `
		UPDATE deliverables SET accepted = false
		WHERE trade_id = $1 AND user_id = $2
	`, chatUUID, partnerID)

	if err != nil {
		log.Printf("Ошибка обновления результатов: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	senderInfo := db.GetUserInfo(ctx, userUUID)
	senderName := "Пользователь"
	if senderInfo != nil && senderInfo.Nickname != "" {
		senderName = senderInfo.Nickname
	}

	notification := models.Notification{
		UserID:     partnerID,
		Type:       models.NotificationDelivery,
		Message:    senderName + " просит доработать результат по «" + chat.TradeName + "»",
		ChatID:     &chatUUID,
		FromUserID: &userUUID,
	}

	if err = notify.Insert(ctx, tx, &notification); err != nil {
		log.Printf("Ошибка создания уведомления: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	notify.Push(notification)

	return c.JSON(fiber.Map{"success": true})
}

// DeleteDeliverable удаляет свой результат работы
func (s *DeliverableService) DeleteDeliverable(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	deliverableID := c.Params("id")

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	deliverableUUID, err := uuid.Parse(deliverableID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID результата"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var ownerID uuid.UUID
	var publicID pgtype.Text
	var isLink, accepted bool
	err = db.Pool.QueryRow(ctx, `
		SELECT user_id, public_id, is_link, accepted FROM deliverables WHERE id = $1
	`, deliverableUUID).Scan(&ownerID, &publicID, &isLink, &accepted)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Результат не найден"})
		}
		log.Printf("Ошибка запроса результата: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Вы можете удалять только свои результаты"})
	}

	if accepted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя удалить уже принятый результат"})
	}

	_, err = db.Pool.Exec(ctx, "DELETE FROM deliverables WHERE id = $1", deliverableUUID)
	if err != nil {
		log.Printf("Ошибка удаления результата: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка удаления результата"})
	}

	// Для загруженных файлов удаляем оригинал из Cloudinary
	if !isLink && publicID.Valid && publicID.String != "" {
		if err := s.cloudinary.Destroy(ctx, publicID.String); err != nil {
			log.Printf("Ошибка удаления файла из Cloudinary: %v", err)
		}
	}

	return c.JSON(fiber.Map{"success": true})
}
