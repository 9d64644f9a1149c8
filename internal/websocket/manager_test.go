package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID string) *Client {
	return &Client{
		ID:        uuid.New(),
		UserID:    userID,
		send:      make(chan []byte, writeBufferSize),
		closeChan: make(chan struct{}),
	}
}

func TestAddRemoveClient(t *testing.T) {
	m := NewManager()
	client := newTestClient(uuid.New().String())

	m.AddClient(client)
	assert.True(t, m.IsOnline(client.UserID))

	m.RemoveClient(client.ID)
	assert.False(t, m.IsOnline(client.UserID))
}

func TestIsOnlineMultipleConnections(t *testing.T) {
	m := NewManager()
	userID := uuid.New().String()

	first := newTestClient(userID)
	second := newTestClient(userID)
	m.AddClient(first)
	m.AddClient(second)

	m.RemoveClient(first.ID)
	assert.True(t, m.IsOnline(userID), "пользователь остается онлайн, пока открыто хотя бы одно соединение")

	m.RemoveClient(second.ID)
	assert.False(t, m.IsOnline(userID))
}

func TestSendToUser(t *testing.T) {
	m := NewManager()
	client := newTestClient(uuid.New().String())
	m.AddClient(client)

	m.SendToUser(client.UserID, Event{
		Type:   EventNewMessage,
		ChatID: uuid.New().String(),
	})

	select {
	case raw := <-client.send:
		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		assert.Equal(t, EventNewMessage, event.Type)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("событие не доставлено клиенту")
	}
}

func TestSendToUserOffline(t *testing.T) {
	m := NewManager()

	// Отправка несуществующему пользователю не должна паниковать
	m.SendToUser(uuid.New().String(), Event{Type: EventNewMessage})
}

func TestSendUnreadCount(t *testing.T) {
	m := NewManager()
	client := newTestClient(uuid.New().String())
	m.AddClient(client)

	m.SendUnreadCount(client.UserID, 3)

	select {
	case raw := <-client.send:
		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		assert.Equal(t, EventUnreadCount, event.Type)

		var payload map[string]int
		require.NoError(t, json.Unmarshal(event.Payload, &payload))
		assert.Equal(t, 3, payload["count"])
	case <-time.After(time.Second):
		t.Fatal("событие не доставлено клиенту")
	}
}
