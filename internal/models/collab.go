package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы запроса на совместную работу
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// CollaborationRequest представляет запрос на совместную работу по объявлению.
// После принятия его ID используется как ID чата между участниками.
type CollaborationRequest struct {
	ID                uuid.UUID `json:"id"`
	TradeID           uuid.UUID `json:"trade_id"`
	RequesterID       uuid.UUID `json:"requester_id"`
	CreatorID         uuid.UUID `json:"creator_id"`
	Message           string    `json:"message"`
	Status            string    `json:"status"` // pending, accepted, rejected
	RequesterApproved bool      `json:"requester_approved"`
	CreatorApproved   bool      `json:"creator_approved"`
	CompletionShown   bool      `json:"completion_shown"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Дополнительные поля для API
	Trade     *Trade    `json:"trade,omitempty"`
	Requester *UserInfo `json:"requester,omitempty"`
	Creator   *UserInfo `json:"creator,omitempty"`
}
