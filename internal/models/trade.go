package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы объявления об обмене услугами
const (
	TradeStatusOpen       = "open"
	TradeStatusInProgress = "in-progress"
	TradeStatusCompleted  = "completed"
)

// Trade представляет объявление об обмене услугами
type Trade struct {
	ID            uuid.UUID `json:"id"`
	CreatorID     uuid.UUID `json:"creator_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Difficulty    string    `json:"difficulty"` // beginner, intermediate, advanced
	ServiceGiven  string    `json:"service_given"`
	ServiceWanted string    `json:"service_wanted"`
	Tags          []string  `json:"tags"`
	ImageURL      string    `json:"image_url,omitempty"`
	Status        string    `json:"status"` // open, in-progress, completed
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Дополнительные поля для API
	Creator *UserInfo `json:"creator,omitempty"`
}
