package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, 16),
		rooms:  make(map[string]struct{}),
	}
}

func receiveEvent(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-c.send:
		var env map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("событие не доставлено")
		return nil
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("неожиданное событие: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_EmitToUser_AllConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	first := newTestClient(hub, userID)
	second := newTestClient(hub, userID)
	other := newTestClient(hub, uuid.New())

	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	require.NoError(t, hub.EmitToUser(userID, "new_message", map[string]string{"content": "привет"}))

	for _, c := range []*Client{first, second} {
		env := receiveEvent(t, c)
		assert.Equal(t, "new_message", env["type"])
		data := env["data"].(map[string]interface{})
		assert.Equal(t, "привет", data["content"])
	}
	assertNoEvent(t, other)
}

func TestHub_EmitToUser_SingleCopyPerConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := newTestClient(hub, userID)
	hub.Register(client)

	require.NoError(t, hub.EmitToUser(userID, "new_message", map[string]string{"content": "привет"}))

	// Ровно одна копия, несмотря на членство в одноимённой личной комнате.
	env := receiveEvent(t, client)
	assert.Equal(t, "new_message", env["type"])
	assertNoEvent(t, client)
}

func TestHub_PersonalRoomAutoJoin(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := newTestClient(hub, userID)
	hub.Register(client)

	// Личная комната совпадает с идентификатором пользователя.
	require.NoError(t, hub.EmitToRoom(userID.String(), "user_typing", nil))
	env := receiveEvent(t, client)
	assert.Equal(t, "user_typing", env["type"])
}

func TestHub_RoomMembership(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	member := newTestClient(hub, uuid.New())
	outsider := newTestClient(hub, uuid.New())
	hub.Register(member)
	hub.Register(outsider)

	hub.JoinRoom(member, "order_GF-1")

	require.NoError(t, hub.EmitToRoom("order_GF-1", "proposal_updated", map[string]string{"status": "delivered"}))
	env := receiveEvent(t, member)
	assert.Equal(t, "proposal_updated", env["type"])
	assertNoEvent(t, outsider)

	// После выхода из комнаты событий больше нет.
	hub.LeaveRoom(member, "order_GF-1")
	require.NoError(t, hub.EmitToRoom("order_GF-1", "proposal_updated", nil))
	assertNoEvent(t, member)
}

func TestHub_UnregisterCleansRooms(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := newTestClient(hub, userID)
	hub.Register(client)
	hub.JoinRoom(client, "order_GF-2")

	hub.Unregister(client)

	// Дождаться обработки: следующая отправка пройдёт после removeClient.
	require.NoError(t, hub.EmitToUser(userID, "new_message", nil))
	assertNoEvent(t, client)

	require.NoError(t, hub.EmitToRoom("order_GF-2", "new_message", nil))
	assertNoEvent(t, client)

	assert.Equal(t, 0, hub.OnlineCount())
}
