package user

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rajivgeraev/skilltrade-api/internal/config"
	"github.com/rajivgeraev/skilltrade-api/internal/db"
	"github.com/rajivgeraev/skilltrade-api/internal/models"
	"github.com/rajivgeraev/skilltrade-api/internal/utils"
)

// UserService представляет сервис для работы с профилями пользователей
type UserService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewUserService создает новый экземпляр UserService
func NewUserService(cfg *config.Config) *UserService {
	return &UserService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetPublicProfile возвращает публичный профиль пользователя (без email)
func (s *UserService) GetPublicProfile(c fiber.Ctx) error {
	profileID := c.Params("id")

	profileUUID, err := uuid.Parse(profileID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	user, err := db.GetUserByID(profileUUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Пользователь не найден"})
		}
		log.Printf("Ошибка получения пользователя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения профиля"})
	}

	// Email не отдается в публичном профиле
	user.Email = ""

	return c.JSON(fiber.Map{"user": user})
}

// UpdateProfile обновляет профиль текущего пользователя
func (s *UserService) UpdateProfile(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	var payload struct {
		Nickname       *string             `json:"nickname"`
		AvatarURL      *string             `json:"avatar_url"`
		Bio            *string             `json:"bio"`
		Specialisation *string             `json:"specialisation"`
		Tags           *[]string           `json:"tags"`
		Availability   *[]string           `json:"availability"`
		SocialLinks    *models.SocialLinks `json:"social_links"`
		Portfolio      *[]string           `json:"portfolio"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if payload.Nickname != nil && *payload.Nickname == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Никнейм не может быть пустым"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Обновляем только переданные поля
	if payload.Nickname != nil {
		if _, err := db.Pool.Exec(ctx, `UPDATE users SET nickname = $1, updated_at = NOW() WHERE id = $2`, *payload.Nickname, userUUID); err != nil {
			log.Printf("Ошибка обновления никнейма: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
		}
	}
	if payload.AvatarURL != nil {
		if _, err := db.Pool.Exec(ctx, `UPDATE users SET avatar_url = $1, updated_at = NOW() WHERE id = $2`, *payload.AvatarURL, userUUID); err != nil {
			log.Printf("Ошибка обновления аватара: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
		}
	}
	if payload.Bio != nil {
		if _, err := db.Pool.Exec(ctx, `UPDATE users SET bio = $1, updated_at = NOW() WHERE id = $2`, *payload.Bio, userUUID); err != nil {
			log.Printf("Ошибка обновления биографии: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
		}
	}
	if payload.Specialisation != nil {
		if _, err := db.Pool.Exec(ctx, `UPDATE users SET specialisation = $1, updated_at = NOW() WHERE id = $2`, *payload.Specialisation, userUUID); err != nil {
			log.Printf("Ошибка обновления специализации: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
		}
	}
	if payload.Tags != nil {
		tagsJSON, _ := json.Marshal(*payload.Tags)
		if _, err := db.Pool.Exec(ctx, `UPDATE users SET tags = $1, updated_at = NOW() WHERE id = $2`, tagsJSON, userUUID); err != nil {
			log.Printf("Ошибка обновления тегов: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
		}
	}
	if payload.Availability != nil {
		availabilityJSON, _ := json.Marshal(*payload.Availability)
		if _, err := db.Pool.Exec(ctx, `UPDATE users SET availability = $1, updated_at = NOW() WHERE id = $2`, availabilityJSON, userUUID); err != nil {
			log.Printf("Ошибка обновления доступности: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
		}
	}
	if payload.SocialLinks != nil {
		socialJSON, _ := json.Marshal(*payload.SocialLinks)
		if _, err := db.Pool.Exec(ctx, `UPDATE users SET social_links = $1, updated_at = NOW() WHERE id = $2`, socialJSON, userUUID); err != nil {
			log.Printf("Ошибка обновления социальных ссылок: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
		}
	}
	if payload.Portfolio != nil {
		portfolioJSON, _ := json.Marshal(*payload.Portfolio)
		if _, err := db.Pool.Exec(ctx, `UPDATE users SET portfolio = $1, updated_at = NOW() WHERE id = $2`, portfolioJSON, userUUID); err != nil {
			log.Printf("Ошибка обновления портфолио: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка обновления профиля"})
		}
	}

	user, err := db.GetUserByID(userUUID)
	if err != nil {
		log.Printf("Ошибка получения обновленного пользователя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения профиля"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// Endorse добавляет рекомендацию пользователю от текущего пользователя
func (s *UserService) Endorse(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	endorsedID := c.Params("id")

	endorserUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	endorsedUUID, err := uuid.Parse(endorsedID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID пользователя"})
	}

	// Нельзя рекомендовать самого себя
	if endorserUUID == endorsedUUID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Нельзя рекомендовать самого себя"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var exists bool
	err = db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND is_active)`, endorsedUUID).Scan(&exists)
	if err != nil {
		log.Printf("Ошибка проверки существования пользователя: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Пользователь не найден"})
	}

	// Проверяем, не была ли рекомендация уже оставлена
	err = db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM endorsements WHERE endorser_id = $1 AND endorsed_id = $2)
	`, endorserUUID, endorsedUUID).Scan(&exists)

	if err != nil {
		log.Printf("Ошибка проверки рекомендации: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Вы уже рекомендовали этого пользователя"})
	}

	// Начинаем транзакцию
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("Ошибка начала транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO endorsements (endorser_id, endorsed_id) VALUES ($1, $2)
	`, endorserUUID, endorsedUUID)

	if err != nil {
		// Уникальный индекс страхует от параллельного дубликата
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Вы уже рекомендовали этого пользователя"})
		}
		log.Printf("Ошибка создания рекомендации: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения рекомендации"})
	}

	var endorsementCount int
	err = tx.QueryRow(ctx, `
		UPDATE users SET endorsement_count = endorsement_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING endorsement_count
	`, endorsedUUID).Scan(&endorsementCount)

	if err != nil {
		log.Printf("Ошибка обновления счетчика рекомендаций: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка сохранения рекомендации"})
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("Ошибка фиксации транзакции: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка базы данных"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":           true,
		"endorsement_count": endorsementCount,
	})
}
