package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatSummary представляет чат в списке чатов пользователя.
// Чатом является принятый запрос на совместную работу.
type ChatSummary struct {
	ID              uuid.UUID  `json:"id"`
	TradeID         uuid.UUID  `json:"trade_id"`
	TradeName       string     `json:"trade_name,omitempty"`
	LastMessageText string     `json:"last_message_text,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	UnreadCount     int        `json:"unread_count"`

	// Дополнительные поля для API
	Partner *UserInfo `json:"partner,omitempty"`
}

// Message представляет сообщение в чате
type Message struct {
	ID       uuid.UUID `json:"id"`
	ChatID   uuid.UUID `json:"chat_id"`
	SenderID uuid.UUID `json:"sender_id"`
	Text     string    `json:"text,omitempty"`
	FileURL  string    `json:"file_url,omitempty"`
	FileName string    `json:"file_name,omitempty"`
	FileType string    `json:"file_type,omitempty"`
	IsRead   bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`

	// Дополнительные поля для API
	Sender *UserInfo `json:"sender,omitempty"`
}
