package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/olegbratus/gigflow-backend/internal/goroutine"
	"github.com/olegbratus/gigflow-backend/internal/logger"
	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/moderation"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
	"github.com/olegbratus/gigflow-backend/internal/validation"
)

// messageStoreRepository описывает взаимодействие сервиса с хранилищем сообщений.
type messageStoreRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, conversationID string, recipientID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	ListConversationSummaries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ConversationSummary, error)
}

// messageOrderRepository — минимальный контракт к хранилищу заказов.
type messageOrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	TouchLastMessage(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

// messageUserRepository — минимальный контракт к хранилищу пользователей.
type messageUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// MessageService реализует конвейер отправки сообщения:
// фильтр контента -> резолвер диалога -> запись в базу -> best-effort
// рассылка через realtime-канал. REST-хэндлер и websocket-клиент оба
// проходят через Send, поэтому фильтрация не может разойтись между путями.
type MessageService struct {
	messages messageStoreRepository
	orders   messageOrderRepository
	users    messageUserRepository
	resolver *ConversationResolver
	notifier Notifier
}

// NewMessageService создаёт новый сервис сообщений.
func NewMessageService(messages messageStoreRepository, orders messageOrderRepository, users messageUserRepository, resolver *ConversationResolver, notifier Notifier) *MessageService {
	return &MessageService{
		messages: messages,
		orders:   orders,
		users:    users,
		resolver: resolver,
		notifier: notifier,
	}
}

// SendMessageInput параметры отправки сообщения.
type SendMessageInput struct {
	SenderID    uuid.UUID
	SenderRole  string
	RecipientID uuid.UUID
	Content     string
	OrderID     *uuid.UUID
	MsgType     string
}

// Send отправляет сообщение. Возвращает сохранённую (уже отфильтрованную)
// запись и флаг "контент был отфильтрован" для предупреждения в UI.
//
// Ошибка доставки через realtime-канал отправкой не считается: сообщение
// уже в базе, получатель увидит его при следующем обновлении.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*models.Message, bool, error) {
	if err := validation.ValidateMessageContent(in.Content); err != nil {
		return nil, false, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.SenderID == in.RecipientID {
		return nil, false, apperror.New(apperror.ErrCodeValidation, "нельзя отправить сообщение самому себе")
	}

	if _, err := s.users.GetByID(ctx, in.RecipientID); err != nil {
		return nil, false, err
	}

	content, wasFiltered := moderation.Filter(in.Content)

	msgType := in.MsgType
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	var conversationID string
	var order *models.Order
	if in.SenderRole == models.RoleAdmin {
		// Сообщения администратора живут в отдельном пространстве имён
		// и резолвер не используют.
		conversationID = AdminConversationID(in.SenderID, in.RecipientID)
		msgType = models.MessageTypeSystem
	} else {
		var err error
		conversationID, order, err = s.resolver.Resolve(ctx, in.SenderID, in.RecipientID, in.OrderID)
		if err != nil {
			return nil, false, err
		}
	}

	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       in.SenderID,
		RecipientID:    in.RecipientID,
		Content:        content,
		IsFiltered:     wasFiltered,
		MsgType:        msgType,
		CreatedAt:      time.Now(),
	}
	if order != nil {
		orderID := order.ID
		msg.OrderID = &orderID
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, false, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось отправить сообщение")
	}

	if order != nil {
		if err := s.orders.TouchLastMessage(ctx, order.ID, msg.CreatedAt); err != nil {
			logger.Log.WithField("order_id", order.ID).Errorf("messages: не удалось обновить last_message_at: %v", err)
		}
	}

	s.fanOut(msg)
	return msg, wasFiltered, nil
}

// SendSystemMessage отправляет служебное сообщение в чат заказа.
// Реализует OrderMessenger.
func (s *MessageService) SendSystemMessage(ctx context.Context, senderID, recipientID uuid.UUID, orderID uuid.UUID, content string) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	filtered, wasFiltered := moderation.Filter(content)

	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: order.ConversationID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		Content:        filtered,
		IsFiltered:     wasFiltered,
		OrderID:        &order.ID,
		MsgType:        models.MessageTypeSystem,
		CreatedAt:      time.Now(),
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return err
	}

	if err := s.orders.TouchLastMessage(ctx, order.ID, msg.CreatedAt); err != nil {
		logger.Log.WithField("order_id", order.ID).Errorf("messages: не удалось обновить last_message_at: %v", err)
	}

	s.fanOut(msg)
	return nil
}

// ListConversation возвращает страницу сообщений диалога с другим
// пользователем (старые первыми) и заказ, который якорит диалог.
// Побочный эффект: все адресованные читателю сообщения диалога
// помечаются прочитанными.
func (s *MessageService) ListConversation(ctx context.Context, userID, otherUserID uuid.UUID, page, pageSize int) ([]models.Message, *models.Order, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	conversationID, order, err := s.resolver.Resolve(ctx, userID, otherUserID, nil)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, err
	}

	// Хранилище отдаёт новые первыми, UI рисует старые первыми.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	// Просмотр диалога помечает входящие прочитанными. Сообщение,
	// пришедшее посреди этой операции, догонит следующий просмотр.
	if _, err := s.messages.MarkConversationRead(ctx, conversationID, userID, time.Now()); err != nil {
		logger.Log.WithField("conversation_id", conversationID).Errorf("messages: не удалось пометить сообщения прочитанными: %v", err)
	}

	return messages, order, nil
}

// ListThread возвращает страницу сообщений диалога по его явному
// идентификатору (старые первыми). Парные диалоги доступны и через
// ListConversation; админские (admin_<a>_<b>) резолвер по паре
// пользователей не восстановит, для них это единственный путь чтения.
// Побочный эффект тот же: входящие помечаются прочитанными.
func (s *MessageService) ListThread(ctx context.Context, userID uuid.UUID, conversationID string, page, pageSize int) ([]models.Message, error) {
	if conversationID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан идентификатор диалога")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	// Диалог — производная группировка без таблицы участников,
	// членство проверяется по самим сообщениям.
	if messages[0].SenderID != userID && messages[0].RecipientID != userID {
		return nil, apperror.ErrForbidden
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	if _, err := s.messages.MarkConversationRead(ctx, conversationID, userID, time.Now()); err != nil {
		logger.Log.WithField("conversation_id", conversationID).Errorf("messages: не удалось пометить сообщения прочитанными: %v", err)
	}

	return messages, nil
}

// ListConversations возвращает страницу диалогов пользователя.
func (s *MessageService) ListConversations(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.ConversationSummary, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.messages.ListConversationSummaries(ctx, userID, pageSize, (page-1)*pageSize)
}

// MarkRead помечает прочитанными все сообщения диалога, адресованные
// пользователю. Явный вариант побочного эффекта ListConversation.
func (s *MessageService) MarkRead(ctx context.Context, conversationID string, userID uuid.UUID) error {
	_, err := s.messages.MarkConversationRead(ctx, conversationID, userID, time.Now())
	return err
}

// UnreadCount возвращает общее количество непрочитанных сообщений.
func (s *MessageService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.messages.CountUnread(ctx, userID)
}

// fanOut рассылает сохранённое сообщение в личные каналы обеих сторон.
// Личный канал охватывает все соединения пользователя, включая его
// одноимённую комнату: параллельная рассылка в комнату дала бы каждому
// соединению вторую копию того же события.
func (s *MessageService) fanOut(msg *models.Message) {
	if s.notifier == nil {
		return
	}

	goroutine.SafeGo(func() {
		for _, userID := range []uuid.UUID{msg.SenderID, msg.RecipientID} {
			if err := s.notifier.EmitToUser(userID, EventNewMessage, msg); err != nil {
				logger.Log.Debugf("messages: не удалось доставить событие пользователю %s: %v", userID, err)
			}
		}
	})
}
