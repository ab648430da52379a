package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/olegbratus/gigflow-backend/internal/logger"
	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// MessageSender отправляет сообщение через общий конвейер сервиса.
// Websocket-путь и REST-путь обязаны проходить одну и ту же фильтрацию.
type MessageSender interface {
	Send(ctx context.Context, in service.SendMessageInput) (*models.Message, bool, error)
}

// Client представляет одно подключение WebSocket.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	sender MessageSender
	userID uuid.UUID
	role   string
	send   chan []byte

	// rooms защищён мьютексом хаба.
	rooms map[string]struct{}
}

// NewClient создаёт нового клиента.
func NewClient(conn *websocket.Conn, hub *Hub, sender MessageSender, userID uuid.UUID, role string) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		sender: sender,
		userID: userID,
		role:   role,
		send:   make(chan []byte, 16),
		rooms:  make(map[string]struct{}),
	}
}

// Run запускает обработку входящих и исходящих сообщений.
func (c *Client) Run(ctx context.Context) {
	go c.writePumpSafe()
	c.readPump(ctx)
}

// writePumpSafe запускает writePump с обработкой panic.
func (c *Client) writePumpSafe() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("ws: writePump panic recovered: %v", r)
			c.Close()
		}
	}()
	c.writePump()
}

// Close закрывает соединение.
func (c *Client) Close() {
	c.hub.Unregister(c)
	c.conn.Close()
}

// inboundEnvelope — конверт входящего события от клиента.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("ws: readPump panic recovered: %v", r)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(512 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, raw, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Log.Debugf("ws: соединение пользователя %s закрыто с ошибкой: %v", c.userID, err)
				}
				return
			}
			c.dispatch(ctx, raw)
		}
	}
}

// dispatch обрабатывает одно входящее событие. Некорректные события
// игнорируются: закрывать соединение из-за одного плохого кадра незачем.
func (c *Client) dispatch(ctx context.Context, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Log.Debugf("ws: некорректный конверт от %s: %v", c.userID, err)
		return
	}

	switch env.Type {
	case "join_room":
		var data struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil || data.Room == "" {
			return
		}
		c.hub.JoinRoom(c, data.Room)

	case "leave_room":
		var data struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil || data.Room == "" {
			return
		}
		c.hub.LeaveRoom(c, data.Room)

	case "send_message":
		c.handleSendMessage(ctx, env.Data)

	case "typing_start":
		c.relayTyping(env.Data, service.EventUserTyping)

	case "typing_stop":
		c.relayTyping(env.Data, service.EventUserStoppedTyping)

	case "proposal_updated":
		// Клиент сам сигналит второй стороне об изменении предложения;
		// сервер только ретранслирует, не интерпретируя полезную нагрузку.
		var data struct {
			RecipientID uuid.UUID       `json:"recipient_id"`
			Payload     json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil || data.RecipientID == uuid.Nil {
			return
		}
		if err := c.hub.EmitToUser(data.RecipientID, service.EventProposalUpdated, data.Payload); err != nil {
			logger.Log.Debugf("ws: не удалось ретранслировать proposal_updated: %v", err)
		}

	default:
		logger.Log.Debugf("ws: неизвестный тип события %q от %s", env.Type, c.userID)
	}
}

func (c *Client) handleSendMessage(ctx context.Context, raw []byte) {
	var data struct {
		RecipientID uuid.UUID  `json:"recipient_id"`
		Content     string     `json:"content"`
		OrderID     *uuid.UUID `json:"order_id"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return
	}

	// Доставку выполняет сам сервис; здесь важен только результат.
	_, _, err := c.sender.Send(ctx, service.SendMessageInput{
		SenderID:    c.userID,
		SenderRole:  c.role,
		RecipientID: data.RecipientID,
		Content:     data.Content,
		OrderID:     data.OrderID,
	})
	if err != nil {
		logger.Log.Debugf("ws: не удалось отправить сообщение от %s: %v", c.userID, err)
		if emitErr := c.hub.EmitToUser(c.userID, "error", map[string]string{"message": err.Error()}); emitErr != nil {
			logger.Log.Debugf("ws: не удалось доставить ошибку отправителю: %v", emitErr)
		}
	}
}

// relayTyping пересылает индикатор набора второй стороне.
func (c *Client) relayTyping(raw []byte, event string) {
	var data struct {
		RecipientID uuid.UUID `json:"recipient_id"`
	}
	if err := json.Unmarshal(raw, &data); err != nil || data.RecipientID == uuid.Nil {
		return
	}
	payload := map[string]interface{}{"user_id": c.userID}
	if err := c.hub.EmitToUser(data.RecipientID, event, payload); err != nil {
		logger.Log.Debugf("ws: не удалось доставить индикатор набора: %v", err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
