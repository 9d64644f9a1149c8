package models

import (
	"time"

	"github.com/google/uuid"
)

// Оценки по итогам завершенного обмена
const (
	RatingExcellent = "excellent"
	RatingGood      = "good"
	RatingNeutral   = "neutral"
	RatingPoor      = "poor"
)

// TradeFeedback представляет оценку партнера по итогам завершенного обмена
type TradeFeedback struct {
	ID        uuid.UUID `json:"id"`
	TradeID   uuid.UUID `json:"trade_id"` // ID чата (принятого запроса)
	RaterID   uuid.UUID `json:"rater_id"`
	RatedID   uuid.UUID `json:"rated_id"`
	Rating    string    `json:"rating"` // excellent, good, neutral, poor
	EloChange int       `json:"elo_change"`
	TradeName string    `json:"trade_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
