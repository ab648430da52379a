package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/moderation"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
)

// TouchLastMessage дополняет fakeOrderRepo до контракта хранилища
// заказов сервиса сообщений.
func (f *fakeOrderRepo) TouchLastMessage(_ context.Context, orderID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[orderID]; ok {
		order.LastMessageAt = &at
	}
	return nil
}

// FindLatestActiveBetween дополняет fakeOrderRepo до контракта резолвера:
// самый свежий "живой" заказ между парой пользователей.
func (f *fakeOrderRepo) FindLatestActiveBetween(_ context.Context, userA, userB uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := make(map[models.OrderStatus]bool, len(models.ActiveOrderStatuses))
	for _, s := range models.ActiveOrderStatuses {
		active[s] = true
	}
	var latest *models.Order
	for _, o := range f.orders {
		pair := (o.ClientID == userA && o.FreelancerID == userB) ||
			(o.ClientID == userB && o.FreelancerID == userA)
		if !pair || !active[o.Status] {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// fakeMessageStore — хранилище сообщений в памяти.
type fakeMessageStore struct {
	mu       sync.Mutex
	messages []models.Message
}

func (f *fakeMessageStore) Create(_ context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageStore) ListByConversation(_ context.Context, conversationID string, limit, offset int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Новые первыми, как в SQL-хранилище.
	var out []models.Message
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].ConversationID == conversationID {
			out = append(out, f.messages[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageStore) MarkConversationRead(_ context.Context, conversationID string, recipientID uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.messages {
		m := &f.messages[i]
		if m.ConversationID == conversationID && m.RecipientID == recipientID && !m.IsRead {
			m.IsRead = true
			m.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for i := range f.messages {
		if f.messages[i].RecipientID == userID && !f.messages[i].IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageStore) ListConversationSummaries(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.ConversationSummary, error) {
	return nil, nil
}

func newMessageFixture(t *testing.T) (*MessageService, *fakeMessageStore, *fakeOrderRepo, uuid.UUID, uuid.UUID) {
	t.Helper()

	store := &fakeMessageStore{}
	orders := newFakeOrderRepo()
	a, b := uuid.New(), uuid.New()
	users := &fakeUsers{byID: map[uuid.UUID]*models.User{
		a: {ID: a, Role: models.RoleClient},
		b: {ID: b, Role: models.RoleFreelancer},
	}}

	svc := NewMessageService(store, orders, users, NewConversationResolver(orders), &recordingNotifier{})
	return svc, store, orders, a, b
}

func TestSend_CleanContentPassesThrough(t *testing.T) {
	svc, store, _, a, b := newMessageFixture(t)

	msg, wasFiltered, err := svc.Send(context.Background(), SendMessageInput{
		SenderID:    a,
		SenderRole:  models.RoleClient,
		RecipientID: b,
		Content:     "Добрый день, интересует ваш сервис",
	})
	require.NoError(t, err)
	assert.False(t, wasFiltered)
	assert.Equal(t, "Добрый день, интересует ваш сервис", msg.Content)
	assert.Equal(t, PairConversationID(a, b), msg.ConversationID)
	assert.Equal(t, models.MessageTypeText, msg.MsgType)
	require.Len(t, store.messages, 1)
}

func TestSend_FiltersContactInfoButPersists(t *testing.T) {
	svc, store, _, a, b := newMessageFixture(t)

	msg, wasFiltered, err := svc.Send(context.Background(), SendMessageInput{
		SenderID:    a,
		SenderRole:  models.RoleClient,
		RecipientID: b,
		Content:     "Hi, interested in your logo service, here's my email a@b.com",
	})
	require.NoError(t, err)
	assert.True(t, wasFiltered)
	assert.Equal(t, "Hi, interested in your logo service, here's my email "+moderation.Marker, msg.Content)
	assert.True(t, msg.IsFiltered)

	// В хранилище лежит уже отфильтрованный текст.
	require.Len(t, store.messages, 1)
	assert.Equal(t, msg.Content, store.messages[0].Content)
}

func TestSend_AnchorsToActiveOrder(t *testing.T) {
	svc, store, orders, a, b := newMessageFixture(t)

	order := &models.Order{
		ID:             uuid.New(),
		ClientID:       a,
		FreelancerID:   b,
		Status:         models.OrderStatusInProgress,
		ConversationID: "order_GF-7",
		DeliveryDate:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, orders.Create(context.Background(), order))

	msg, _, err := svc.Send(context.Background(), SendMessageInput{
		SenderID:    b,
		SenderRole:  models.RoleFreelancer,
		RecipientID: a,
		Content:     "Начинаю работу",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_GF-7", msg.ConversationID)
	require.NotNil(t, msg.OrderID)
	assert.Equal(t, order.ID, *msg.OrderID)
	require.Len(t, store.messages, 1)

	// Сообщение обновило отметку последней активности заказа.
	got, err := orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.Equal(t, msg.CreatedAt, *got.LastMessageAt)
}

func TestSend_AdminUsesOwnNamespace(t *testing.T) {
	svc, _, _, a, b := newMessageFixture(t)

	msg, _, err := svc.Send(context.Background(), SendMessageInput{
		SenderID:    a,
		SenderRole:  models.RoleAdmin,
		RecipientID: b,
		Content:     "Ваш аккаунт проверен",
	})
	require.NoError(t, err)
	assert.Equal(t, AdminConversationID(a, b), msg.ConversationID)
	assert.Equal(t, models.MessageTypeSystem, msg.MsgType)
}

func TestSend_Validation(t *testing.T) {
	svc, _, _, a, b := newMessageFixture(t)
	ctx := context.Background()

	_, _, err := svc.Send(ctx, SendMessageInput{SenderID: a, RecipientID: b, Content: "   "})
	assert.True(t, apperror.IsValidation(err))

	_, _, err = svc.Send(ctx, SendMessageInput{SenderID: a, RecipientID: a, Content: "привет"})
	assert.True(t, apperror.IsValidation(err))

	_, _, err = svc.Send(ctx, SendMessageInput{SenderID: a, RecipientID: uuid.New(), Content: "привет"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestListConversation_OldestFirstAndMarksRead(t *testing.T) {
	svc, store, _, a, b := newMessageFixture(t)
	ctx := context.Background()

	for _, text := range []string{"первое", "второе", "третье"} {
		_, _, err := svc.Send(ctx, SendMessageInput{
			SenderID:    a,
			SenderRole:  models.RoleClient,
			RecipientID: b,
			Content:     text,
		})
		require.NoError(t, err)
	}

	unread, err := svc.UnreadCount(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	messages, order, err := svc.ListConversation(ctx, b, a, 1, 50)
	require.NoError(t, err)
	assert.Nil(t, order)
	require.Len(t, messages, 3)
	assert.Equal(t, "первое", messages[0].Content)
	assert.Equal(t, "третье", messages[2].Content)

	// Просмотр пометил входящие прочитанными.
	unread, err = svc.UnreadCount(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	for i := range store.messages {
		assert.True(t, store.messages[i].IsRead)
		assert.NotNil(t, store.messages[i].ReadAt)
	}
}

func TestListThread_ReadsAdminConversation(t *testing.T) {
	svc, store, _, a, b := newMessageFixture(t)
	ctx := context.Background()

	_, _, err := svc.Send(ctx, SendMessageInput{
		SenderID:    a,
		SenderRole:  models.RoleAdmin,
		RecipientID: b,
		Content:     "Ваш аккаунт проверен",
	})
	require.NoError(t, err)

	threadID := AdminConversationID(a, b)

	// Получатель читает диалог по явному идентификатору; входящие
	// помечаются прочитанными.
	messages, err := svc.ListThread(ctx, b, threadID, 1, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Ваш аккаунт проверен", messages[0].Content)
	assert.True(t, store.messages[0].IsRead)

	// Посторонний доступа не имеет.
	_, err = svc.ListThread(ctx, uuid.New(), threadID, 1, 50)
	assert.True(t, apperror.IsForbidden(err))

	// Пустой диалог — пустой результат без ошибки.
	empty, err := svc.ListThread(ctx, b, "admin_none", 1, 50)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMarkRead_OnlyRecipient(t *testing.T) {
	svc, store, _, a, b := newMessageFixture(t)
	ctx := context.Background()

	_, _, err := svc.Send(ctx, SendMessageInput{
		SenderID:    a,
		SenderRole:  models.RoleClient,
		RecipientID: b,
		Content:     "привет",
	})
	require.NoError(t, err)

	conversationID := PairConversationID(a, b)

	// Отправитель не может пометить своё сообщение прочитанным.
	require.NoError(t, svc.MarkRead(ctx, conversationID, a))
	assert.False(t, store.messages[0].IsRead)

	require.NoError(t, svc.MarkRead(ctx, conversationID, b))
	assert.True(t, store.messages[0].IsRead)
	assert.NotNil(t, store.messages[0].ReadAt)
}

func TestSend_FanOutOneEventPerParty(t *testing.T) {
	store := &fakeMessageStore{}
	orders := newFakeOrderRepo()
	a, b := uuid.New(), uuid.New()
	users := &fakeUsers{byID: map[uuid.UUID]*models.User{
		a: {ID: a, Role: models.RoleClient},
		b: {ID: b, Role: models.RoleFreelancer},
	}}
	notifier := &recordingNotifier{}
	svc := NewMessageService(store, orders, users, NewConversationResolver(orders), notifier)

	_, _, err := svc.Send(context.Background(), SendMessageInput{
		SenderID:    a,
		SenderRole:  models.RoleClient,
		RecipientID: b,
		Content:     "привет",
	})
	require.NoError(t, err)

	// Рассылка уходит в фоновой горутине.
	require.Eventually(t, func() bool {
		events, _ := notifier.userEmits()
		return len(events) == 2
	}, time.Second, 10*time.Millisecond)

	events, targets := notifier.userEmits()
	assert.Equal(t, []string{EventNewMessage, EventNewMessage}, events)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, targets)

	// В комнаты событие не уходит: каждое соединение уже состоит в
	// одноимённой личной комнате, и рассылка туда давала бы дубликаты.
	assert.Equal(t, 0, notifier.roomEmitCount())
}

func TestSendSystemMessage_UsesOrderConversation(t *testing.T) {
	svc, store, orders, a, b := newMessageFixture(t)
	ctx := context.Background()

	order := &models.Order{
		ID:             uuid.New(),
		ClientID:       a,
		FreelancerID:   b,
		Status:         models.OrderStatusInProgress,
		ConversationID: "order_GF-9",
		DeliveryDate:   time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, orders.Create(ctx, order))

	require.NoError(t, svc.SendSystemMessage(ctx, b, a, order.ID, "Работа сдана: финальные макеты"))

	require.Len(t, store.messages, 1)
	msg := store.messages[0]
	assert.Equal(t, "order_GF-9", msg.ConversationID)
	assert.Equal(t, models.MessageTypeSystem, msg.MsgType)
	require.NotNil(t, msg.OrderID)
	assert.Equal(t, order.ID, *msg.OrderID)
}
