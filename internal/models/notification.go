package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений
const (
	NotificationCollabRequest = "collaboration_request"
	NotificationMessage       = "message"
	NotificationAccept        = "accept"
	NotificationDelivery      = "delivery"
	NotificationTradeFeedback = "trade_feedback"
)

// Notification представляет уведомление пользователя
type Notification struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	TradeID    *uuid.UUID `json:"trade_id,omitempty"`
	ChatID     *uuid.UUID `json:"chat_id,omitempty"`
	FromUserID *uuid.UUID `json:"from_user_id,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"created_at"`
}
