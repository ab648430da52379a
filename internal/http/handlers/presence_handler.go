package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/olegbratus/gigflow-backend/internal/dto"
	"github.com/olegbratus/gigflow-backend/internal/http/handlers/common"
	"github.com/olegbratus/gigflow-backend/internal/service"
)

// PresenceHandler отдаёт онлайн-статусы пользователей.
type PresenceHandler struct {
	presence service.PresenceService
}

// NewPresenceHandler создаёт новый хэндлер.
func NewPresenceHandler(presence service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// Get обрабатывает GET /api/presence/:id.
func (h *PresenceHandler) Get(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "неверный идентификатор пользователя")
		return
	}

	online, err := h.presence.IsOnline(c.Request.Context(), userID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, dto.PresenceResponse{
		UserID: userID.String(),
		Online: online,
	})
}
