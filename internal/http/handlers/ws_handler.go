package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/olegbratus/gigflow-backend/internal/logger"
	"github.com/olegbratus/gigflow-backend/internal/service"
	"github.com/olegbratus/gigflow-backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub          *ws.Hub
	tokenManager *service.TokenManager
	messages     *service.MessageService
	presence     service.PresenceService
	upgrader     websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager, messages *service.MessageService, presence service.PresenceService) *WSHandler {
	return &WSHandler{
		hub:          hub,
		tokenManager: tokens,
		messages:     messages,
		presence:     presence,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "access токен обязателен"})
		return
	}

	userID, role, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "невалидный access токен"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	client := ws.NewClient(conn, h.hub, h.messages, userID, role)
	h.hub.Register(client)

	if err := h.presence.SetOnline(c.Request.Context(), userID); err != nil {
		logger.Log.Debugf("presence: не удалось отметить пользователя %s онлайн: %v", userID, err)
	}

	client.Run(c.Request.Context())

	// Run блокируется до разрыва соединения; контекст запроса к этому
	// моменту уже отменён.
	offCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.SetOffline(offCtx, userID); err != nil {
		logger.Log.Debugf("presence: не удалось отметить пользователя %s офлайн: %v", userID, err)
	}
}
