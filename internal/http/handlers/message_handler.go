package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/olegbratus/gigflow-backend/internal/dto"
	"github.com/olegbratus/gigflow-backend/internal/http/handlers/common"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
	"github.com/olegbratus/gigflow-backend/internal/service"
)

// MessageHandler обслуживает маршруты сообщений и диалогов.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler создаёт новый хэндлер.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send обрабатывает POST /api/messages/send.
//
// Если контент был отфильтрован, клиент получает предупреждение в поле
// warning, но сообщение всё равно сохраняется и доставляется.
func (h *MessageHandler) Send(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса"))
		return
	}

	msg, wasFiltered, err := h.messages.Send(c.Request.Context(), service.SendMessageInput{
		SenderID:    actor.ID,
		SenderRole:  actor.Role,
		RecipientID: req.RecipientID,
		Content:     req.Content,
		OrderID:     req.OrderID,
		MsgType:     req.Type,
	})
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	if wasFiltered {
		common.RespondDataWithWarning(c, http.StatusCreated, msg, "контактные данные в сообщении были скрыты")
		return
	}
	common.RespondData(c, http.StatusCreated, msg)
}

// Conversation обрабатывает GET /api/messages/conversation/:userId.
// Побочный эффект: входящие сообщения диалога помечаются прочитанными.
func (h *MessageHandler) Conversation(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	otherUserID, err := common.ParseUUIDParam(c, "userId")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "неверный идентификатор пользователя")
		return
	}

	page, pageSize := common.GetPagination(c)

	messages, order, err := h.messages.ListConversation(c.Request.Context(), userID, otherUserID, page, pageSize)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	resp := dto.ConversationMessagesResponse{Messages: messages}
	if order != nil {
		resp.Order = dto.NewOrderResponse(order)
	}

	common.RespondPage(c, http.StatusOK, resp, page, pageSize)
}

// Thread обрабатывает GET /api/messages/thread/:conversationId.
// Чтение диалога по явному идентификатору — в том числе админского,
// который через /conversation/:userId недоступен.
func (h *MessageHandler) Thread(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	conversationID := c.Param("conversationId")
	page, pageSize := common.GetPagination(c)

	messages, err := h.messages.ListThread(c.Request.Context(), userID, conversationID, page, pageSize)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondPage(c, http.StatusOK, dto.ConversationMessagesResponse{Messages: messages}, page, pageSize)
}

// Conversations обрабатывает GET /api/messages/conversations.
func (h *MessageHandler) Conversations(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	page, pageSize := common.GetPagination(c)

	summaries, err := h.messages.ListConversations(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondPage(c, http.StatusOK, summaries, page, pageSize)
}

// MarkRead обрабатывает PUT /api/messages/mark-read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса"))
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), req.ConversationID, userID); err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, gin.H{"marked": true})
}

// UnreadCount обрабатывает GET /api/messages/unread-count.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	count, err := h.messages.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, dto.UnreadCountResponse{Count: count})
}
