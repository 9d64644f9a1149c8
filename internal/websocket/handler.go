package websocket

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rajivgeraev/skilltrade-api/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS для WebSocket проверяется на уровне токена
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler обслуживает WebSocket подключения. Основное приложение работает
// на fasthttp, поэтому WebSocket сервер поднимается отдельным net/http
// листенером.
type Handler struct {
	manager    *Manager
	jwtService *utils.JWTService
	resolver   PartnerResolver
}

// NewHandler создает новый экземпляр Handler
func NewHandler(manager *Manager, jwtService *utils.JWTService, resolver PartnerResolver) *Handler {
	return &Handler{
		manager:    manager,
		jwtService: jwtService,
		resolver:   resolver,
	}
}

// ServeHTTP проверяет токен, апгрейдит соединение и запускает клиента
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Токен передается query-параметром, т.к. браузерный WebSocket API
	// не позволяет задавать заголовки
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ExtractUserID(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	if _, err := uuid.Parse(userID); err != nil {
		http.Error(w, "invalid user id", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Ошибка апгрейда WebSocket соединения: %v", err)
		return
	}

	client := NewClient(userID, conn, h.manager, h.resolver)
	client.Start()
}

// Serve запускает WebSocket сервер на указанном порту
func (h *Handler) Serve(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)

	log.Printf("✅ WebSocket сервер запущен на порту %s", port)
	return http.ListenAndServe(":"+port, mux)
}
