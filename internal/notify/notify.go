package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rajivgeraev/skilltrade-api/internal/db"
	"github.com/rajivgeraev/skilltrade-api/internal/models"
	"github.com/rajivgeraev/skilltrade-api/internal/websocket"
)

// Execer покрывает pgxpool.Pool и pgx.Tx, чтобы уведомление можно было
// записывать как отдельно, так и внутри транзакции бизнес-операции
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var manager *websocket.Manager

// SetManager задает менеджер WebSocket для доставки событий онлайн-пользователям
func SetManager(m *websocket.Manager) {
	manager = m
}

// Insert записывает уведомление в БД. ID и время создания проставляются здесь.
func Insert(ctx context.Context, q Execer, n *models.Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()

	_, err := q.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, message, trade_id, chat_id, from_user_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, n.ID, n.UserID, n.Type, n.Message, n.TradeID, n.ChatID, n.FromUserID, n.CreatedAt)

	return err
}

// Push отправляет уведомление онлайн-соединениям получателя.
// Вызывается после фиксации транзакции, чтобы событие не уходило
// для отмененной операции.
func Push(n models.Notification) {
	if manager == nil {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("Ошибка сериализации уведомления: %v", err)
		return
	}

	event := websocket.Event{
		Type:      websocket.EventType(n.Type),
		Timestamp: n.CreatedAt,
	}
	if n.ChatID != nil {
		event.ChatID = n.ChatID.String()
	}
	if n.TradeID != nil {
		event.TradeID = n.TradeID.String()
	}
	event.Payload = payload

	manager.SendToUser(n.UserID.String(), event)
	PushUnreadCount(n.UserID)
}

// PushUnreadCount отправляет получателю актуальное число непрочитанных уведомлений
func PushUnreadCount(userID uuid.UUID) {
	if manager == nil {
		return
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false
	`, userID).Scan(&count)

	if err != nil {
		log.Printf("Ошибка подсчета непрочитанных уведомлений: %v", err)
		return
	}

	manager.SendUnreadCount(userID.String(), count)
}
