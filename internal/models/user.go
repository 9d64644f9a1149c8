package models

import (
	"time"

	"github.com/google/uuid"
)

// SocialLinks содержит ссылки на внешние профили пользователя
type SocialLinks struct {
	GitHub   string `json:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Behance  string `json:"behance,omitempty"`
	Dribbble string `json:"dribbble,omitempty"`
}

// User представляет пользователя в системе
type User struct {
	ID                   uuid.UUID   `json:"id"`
	Email                string      `json:"email,omitempty"`
	Nickname             string      `json:"nickname"`
	AvatarURL            string      `json:"avatar_url,omitempty"`
	Bio                  string      `json:"bio,omitempty"`
	Specialisation       string      `json:"specialisation,omitempty"`
	Tags                 []string    `json:"tags"`
	Availability         []string    `json:"availability"`
	SocialLinks          SocialLinks `json:"social_links"`
	Portfolio            []string    `json:"portfolio"`
	EndorsementCount     int         `json:"endorsement_count"`
	Reputation           int         `json:"reputation"`
	LastReputationUpdate *time.Time  `json:"last_reputation_update,omitempty"`
	IsActive             bool        `json:"is_active"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// UserInfo представляет минимальную информацию о пользователе для API
type UserInfo struct {
	ID         uuid.UUID `json:"id"`
	Nickname   string    `json:"nickname,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Reputation int       `json:"reputation"`
}
