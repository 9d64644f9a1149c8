package models

import (
	"time"

	"github.com/google/uuid"
)

// Виды результатов работы
const (
	DeliverableKindPreview = "preview"
	DeliverableKindFinal   = "final"
)

// Deliverable представляет результат работы (файл или ссылку),
// загруженный участником в рамках совместной работы
type Deliverable struct {
	ID          uuid.UUID `json:"id"`
	TradeID     uuid.UUID `json:"trade_id"` // ID чата (принятого запроса)
	UserID      uuid.UUID `json:"user_id"`
	Kind        string    `json:"kind"` // preview, final
	FileURL     string    `json:"file_url"`
	FileName    string    `json:"file_name,omitempty"`
	FileType    string    `json:"file_type,omitempty"`
	Description string    `json:"description,omitempty"`
	PublicID    string    `json:"public_id,omitempty"`
	IsLink      bool      `json:"is_link"`
	Accepted    bool      `json:"accepted"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeliverableBoard представляет результаты работы, сгруппированные
// по участникам и видам для страницы результатов
type DeliverableBoard struct {
	MyPreview      []Deliverable `json:"my_preview"`
	MyFinal        []Deliverable `json:"my_final"`
	PartnerPreview []Deliverable `json:"partner_preview"`
	PartnerFinal   []Deliverable `json:"partner_final"`
	BothUploaded   bool          `json:"both_uploaded"`
	MyApproved     bool          `json:"my_approved"`
	PartnerApproved bool         `json:"partner_approved"`
}
