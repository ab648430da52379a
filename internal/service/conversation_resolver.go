package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
)

// PairConversationID возвращает канонический идентификатор диалога пары:
// оба id сортируются лексикографически, поэтому (A,B) и (B,A) всегда
// дают одну и ту же строку.
func PairConversationID(userA, userB uuid.UUID) string {
	a, b := userA.String(), userB.String()
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// AdminConversationID возвращает идентификатор служебного диалога
// администратора с пользователем. Пространство имён отдельное и никогда
// не пересекается с парными и заказными идентификаторами.
func AdminConversationID(adminID, targetID uuid.UUID) string {
	return "admin_" + adminID.String() + "_" + targetID.String()
}

// resolverOrderRepository — минимальный контракт резолвера к хранилищу заказов.
type resolverOrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindLatestActiveBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Order, error)
}

// ConversationResolver выводит идентификатор диалога для пары пользователей.
// Это единственное место, где живёт алгоритм: REST и websocket пути
// обязаны проходить через него, иначе идентификаторы разъедутся.
//
// Известная особенность: шаг с поиском "самого свежего живого заказа"
// выполняется на каждое сообщение, поэтому после закрытия одного заказа
// и открытия нового переписка пары переезжает в новую ветку, а старые
// сообщения остаются под прежним идентификатором. Это осознанное
// поведение "ветка на каждый заказ" (см. DESIGN.md).
type ConversationResolver struct {
	orders resolverOrderRepository
}

func NewConversationResolver(orders resolverOrderRepository) *ConversationResolver {
	return &ConversationResolver{orders: orders}
}

// Resolve возвращает идентификатор диалога и заказ, который его якорит
// (nil, если переписка вне заказа).
func (r *ConversationResolver) Resolve(ctx context.Context, userA, userB uuid.UUID, explicitOrderID *uuid.UUID) (string, *models.Order, error) {
	if explicitOrderID != nil {
		order, err := r.orders.GetByID(ctx, *explicitOrderID)
		if err != nil && !apperror.IsNotFound(err) {
			return "", nil, err
		}
		if order != nil && isPair(order, userA, userB) {
			return order.ConversationID, order, nil
		}
		// Несуществующий или чужой заказ игнорируем и продолжаем
		// обычным алгоритмом.
	}

	order, err := r.orders.FindLatestActiveBetween(ctx, userA, userB)
	if err != nil {
		return "", nil, err
	}
	if order != nil {
		return order.ConversationID, order, nil
	}

	return PairConversationID(userA, userB), nil, nil
}

func isPair(order *models.Order, userA, userB uuid.UUID) bool {
	return (order.ClientID == userA && order.FreelancerID == userB) ||
		(order.ClientID == userB && order.FreelancerID == userA)
}
