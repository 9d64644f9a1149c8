package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/skilltrade-api/internal/models"
)

// CreateUser создает нового пользователя с начальной репутацией
func CreateUser(email, passwordHash, nickname string) (*models.User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	var userID uuid.UUID
	err := Pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, nickname)
		VALUES ($1, $2, $3)
		RETURNING id
	`, email, passwordHash, nickname).Scan(&userID)

	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	return GetUserByID(userID)
}

// GetUserByID получает пользователя по ID
func GetUserByID(userID uuid.UUID) (*models.User, error) {
	ctx, cancel := GetContext()
	defer cancel()
	return getUser(ctx, "id = $1", userID)
}

// GetUserByEmail получает пользователя по email вместе с хешем пароля
func GetUserByEmail(email string) (*models.User, string, error) {
	ctx, cancel := GetContext()
	defer cancel()

	user, err := getUser(ctx, "email = $1", email)
	if err != nil {
		return nil, "", err
	}

	var passwordHash string
	err = Pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, user.ID).Scan(&passwordHash)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка при получении хеша пароля: %w", err)
	}

	return user, passwordHash, nil
}

// getUser получает пользователя по произвольному условию
func getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	var email, nickname, avatarURL, bio, specialisation pgtype.Text
	var tagsData, availabilityData, socialLinksData, portfolioData []byte

	err := Pool.QueryRow(ctx, `
		SELECT id, email, nickname, avatar_url, bio, specialisation,
		       tags, availability, social_links, portfolio,
		       endorsement_count, reputation, last_reputation_update,
		       is_active, created_at, updated_at
		FROM users WHERE `+where, arg).Scan(
		&user.ID, &email, &nickname, &avatarURL, &bio, &specialisation,
		&tagsData, &availabilityData, &socialLinksData, &portfolioData,
		&user.EndorsementCount, &user.Reputation, &user.LastReputationUpdate,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	// Преобразуем nullable поля
	if email.Valid {
		user.Email = email.String
	}
	if nickname.Valid {
		user.Nickname = nickname.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	if bio.Valid {
		user.Bio = bio.String
	}
	if specialisation.Valid {
		user.Specialisation = specialisation.String
	}

	// Преобразуем JSONB колонки
	if err := json.Unmarshal(tagsData, &user.Tags); err != nil {
		user.Tags = []string{}
	}
	if err := json.Unmarshal(availabilityData, &user.Availability); err != nil {
		user.Availability = []string{}
	}
	if err := json.Unmarshal(socialLinksData, &user.SocialLinks); err != nil {
		user.SocialLinks = models.SocialLinks{}
	}
	if err := json.Unmarshal(portfolioData, &user.Portfolio); err != nil {
		user.Portfolio = []string{}
	}

	return &user, nil
}

// GetUserInfo получает минимальную информацию о пользователе для вложенных ответов API
func GetUserInfo(ctx context.Context, userID uuid.UUID) *models.UserInfo {
	var user models.UserInfo
	var nickname, avatarURL pgtype.Text

	err := Pool.QueryRow(ctx, `
		SELECT id, nickname, avatar_url, reputation
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &nickname, &avatarURL, &user.Reputation)

	if err != nil {
		return nil
	}

	if nickname.Valid {
		user.Nickname = nickname.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}

	return &user
}
