package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/olegbratus/gigflow-backend/internal/goroutine"
)

// Hub управляет всеми WebSocket клиентами. Каждый пользователь получает
// личный канал (по userID), плюс клиенты могут входить в именованные
// комнаты. Членство в комнатах живёт только в памяти и не переживает
// переподключение.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
}

type outbound struct {
	// Ровно одно из полей адресации заполнено.
	userID  *uuid.UUID
	room    string
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 32),
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			if msg.userID != nil {
				h.sendToUser(*msg.userID, msg.payload)
			} else {
				h.sendToRoom(msg.room, msg.payload)
			}
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// EmitToUser отправляет событие во все соединения пользователя.
// Реализует service.Notifier.
func (h *Hub) EmitToUser(userID uuid.UUID, event string, data interface{}) error {
	raw, err := encodeEvent(event, data)
	if err != nil {
		return err
	}
	h.broadcast <- outbound{userID: &userID, payload: raw}
	return nil
}

// EmitToRoom отправляет событие всем участникам комнаты.
// Реализует service.Notifier.
func (h *Hub) EmitToRoom(room string, event string, data interface{}) error {
	raw, err := encodeEvent(event, data)
	if err != nil {
		return err
	}
	h.broadcast <- outbound{room: room, payload: raw}
	return nil
}

// JoinRoom добавляет клиента в комнату.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.rooms[room] = struct{}{}
}

// LeaveRoom удаляет клиента из комнаты.
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(client, room)
}

// OnlineCount возвращает число подключённых пользователей.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// encodeEvent кодирует событие в конверт контракта WebSocket API:
// поле "type" содержит имя события, "data" — полезную нагрузку.
func encodeEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": data,
	})
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}

	// Личная комната — всегда. Остальные клиент запрашивает сам.
	personal := client.userID.String()
	if _, ok := h.rooms[personal]; !ok {
		h.rooms[personal] = make(map[*Client]struct{})
	}
	h.rooms[personal][client] = struct{}{}
	client.rooms[personal] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
	for room := range client.rooms {
		h.removeFromRoom(client, room)
	}
}

// removeFromRoom вызывается под h.mu.
func (h *Hub) removeFromRoom(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

func (h *Hub) sendToUser(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		h.deliver(client, payload)
	}
}

func (h *Hub) sendToRoom(room string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		h.deliver(client, payload)
	}
}

func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		// Буфер клиента переполнен — соединение мертво или безнадёжно
		// отстало. Закрываем асинхронно, чтобы не держать блокировку.
		goroutine.SafeGo(client.Close)
	}
}
