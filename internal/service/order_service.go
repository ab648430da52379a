package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/olegbratus/gigflow-backend/internal/goroutine"
	"github.com/olegbratus/gigflow-backend/internal/logger"
	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
	"github.com/olegbratus/gigflow-backend/internal/validation"
)

// orderServiceRepository описывает взаимодействие сервиса с хранилищем заказов.
type orderServiceRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByParty(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, expected, next models.OrderStatus, actorID *uuid.UUID, note *string, stampDelivery bool) (*models.Order, error)
	SubmitDeliverable(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, deliverable *models.OrderDeliverable) (*models.Order, error)
	AddRevision(ctx context.Context, orderID uuid.UUID, reason string) error
	ResolveOpenRevisions(ctx context.Context, orderID uuid.UUID) error
	ListDeliverables(ctx context.Context, orderID uuid.UUID) ([]models.OrderDeliverable, error)
	ListRevisions(ctx context.Context, orderID uuid.UUID) ([]models.OrderRevision, error)
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

// orderUserRepository — минимальный контракт к хранилищу пользователей.
type orderUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// OrderMessenger отправляет служебные сообщения в чат заказа.
type OrderMessenger interface {
	SendSystemMessage(ctx context.Context, senderID, recipientID uuid.UUID, orderID uuid.UUID, content string) error
}

// Actor — инициатор операции над заказом.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// OrderService содержит бизнес-логику жизненного цикла заказов.
// Таблица допустимых переходов живёт в models.OrderStatus; здесь
// добавляются ролевые ограничения, побочные эффекты и уведомления.
type OrderService struct {
	repo      orderServiceRepository
	users     orderUserRepository
	notifier  Notifier
	messenger OrderMessenger
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(repo orderServiceRepository, users orderUserRepository, notifier Notifier) *OrderService {
	return &OrderService{repo: repo, users: users, notifier: notifier}
}

// SetMessenger подключает отправку системных сообщений (устанавливается
// после создания, чтобы разорвать цикл инициализации с MessageService).
func (s *OrderService) SetMessenger(m OrderMessenger) {
	s.messenger = m
}

// CreateOrderInput параметры создания заказа.
type CreateOrderInput struct {
	FreelancerID uuid.UUID
	Title        string
	Price        *float64
	DeliveryDate time.Time
}

// CreateOrder создаёт заказ в статусе pending. Идентификатор диалога
// заказа фиксируется сразу и больше не меняется.
func (s *OrderService) CreateOrder(ctx context.Context, clientID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	if err := validation.ValidateOrderTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.FreelancerID == clientID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя оформить заказ на самого себя")
	}
	if in.DeliveryDate.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок сдачи не может быть в прошлом")
	}

	freelancer, err := s.users.GetByID(ctx, in.FreelancerID)
	if err != nil {
		return nil, err
	}
	if freelancer.Role != models.RoleFreelancer {
		return nil, apperror.New(apperror.ErrCodeValidation, "исполнитель должен иметь роль freelancer")
	}

	now := time.Now()
	number := newOrderNumber()
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    number,
		ClientID:       clientID,
		FreelancerID:   in.FreelancerID,
		Title:          in.Title,
		Price:          in.Price,
		Status:         models.OrderStatusPending,
		ConversationID: "order_" + number,
		DeliveryDate:   in.DeliveryDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder возвращает заказ со связанными данными. Доступен только
// сторонам заказа и администратору.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(actor.ID) && actor.Role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}

	if order.Deliverables, err = s.repo.ListDeliverables(ctx, orderID); err != nil {
		return nil, err
	}
	if order.Revisions, err = s.repo.ListRevisions(ctx, orderID); err != nil {
		return nil, err
	}
	if order.StatusHistory, err = s.repo.ListStatusHistory(ctx, orderID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListMyOrders возвращает заказы пользователя в любой роли.
func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.repo.ListByParty(ctx, userID)
}

// UpdateStatus выполняет переход статуса заказа.
//
// Ролевую политику (кто какой переход имеет право запросить) проверяет
// сервис; сама таблица переходов ролей не знает. Гонка двух сторон за
// один заказ разрешается условным обновлением в репозитории: проигравшая
// сторона получает ошибку недопустимого перехода.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, next models.OrderStatus, note *string) (*models.Order, error) {
	if !next.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(actor.ID) && actor.Role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if err := s.checkRolePolicy(actor, order, next); err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, apperror.ErrInvalidTransition
	}

	prev := order.Status
	stampDelivery := next == models.OrderStatusDelivered

	updated, err := s.repo.TransitionStatus(ctx, orderID, prev, next, &actor.ID, note, stampDelivery)
	if err != nil {
		return nil, err
	}

	// Побочные эффекты цикла доработок.
	switch {
	case next == models.OrderStatusRevisionRequested:
		reason := ""
		if note != nil {
			reason = *note
		}
		if err := s.repo.AddRevision(ctx, orderID, reason); err != nil {
			logger.Log.WithField("order_id", orderID).Errorf("orders: не удалось записать запрос доработки: %v", err)
		}
	case next == models.OrderStatusInProgress && prev == models.OrderStatusRevisionRequested:
		if err := s.repo.ResolveOpenRevisions(ctx, orderID); err != nil {
			logger.Log.WithField("order_id", orderID).Errorf("orders: не удалось закрыть запросы доработки: %v", err)
		}
	}

	s.notifyParties(updated)
	return updated, nil
}

// SubmitDeliverablesInput параметры сдачи работы.
type SubmitDeliverablesInput struct {
	Files   json.RawMessage
	Message string
}

// SubmitDeliverables фиксирует сдачу работы: составная операция, которая
// добавляет запись о сдаче, принудительно переводит заказ в delivered и
// ставит фактическую дату. Выполняется всегда, независимо от текущего
// статуса; право вызова — только у назначенного фрилансера или админа.
func (s *OrderService) SubmitDeliverables(ctx context.Context, actor Actor, orderID uuid.UUID, in SubmitDeliverablesInput) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.FreelancerID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}

	deliverable := &models.OrderDeliverable{
		ID:        uuid.New(),
		OrderID:   orderID,
		Message:   in.Message,
		Files:     in.Files,
		CreatedAt: time.Now(),
	}

	updated, err := s.repo.SubmitDeliverable(ctx, orderID, &actor.ID, deliverable)
	if err != nil {
		return nil, err
	}

	// Сдача работы закрывает открытые запросы доработки.
	if err := s.repo.ResolveOpenRevisions(ctx, orderID); err != nil {
		logger.Log.WithField("order_id", orderID).Errorf("orders: не удалось закрыть запросы доработки: %v", err)
	}

	// Служебное сообщение в чат заказа — best-effort.
	if s.messenger != nil && in.Message != "" {
		if err := s.messenger.SendSystemMessage(ctx, order.FreelancerID, order.ClientID, orderID, in.Message); err != nil {
			logger.Log.WithField("order_id", orderID).Errorf("orders: не удалось отправить служебное сообщение: %v", err)
		}
	}

	s.notifyParties(updated)
	return updated, nil
}

// checkRolePolicy проверяет, может ли роль инициатора запросить переход.
func (s *OrderService) checkRolePolicy(actor Actor, order *models.Order, next models.OrderStatus) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}

	switch next {
	case models.OrderStatusInProgress, models.OrderStatusDelivered:
		if actor.ID != order.FreelancerID {
			return apperror.ErrForbidden
		}
	case models.OrderStatusCompleted, models.OrderStatusRevisionRequested:
		if actor.ID != order.ClientID {
			return apperror.ErrForbidden
		}
	default:
		return apperror.ErrForbidden
	}
	return nil
}

// notifyParties рассылает сторонам заказа событие об изменении.
func (s *OrderService) notifyParties(order *models.Order) {
	if s.notifier == nil {
		return
	}

	payload := map[string]interface{}{
		"order_id":      order.ID,
		"order_number":  order.OrderNumber,
		"status":        order.Status,
		"progress":      order.Progress(),
		"client_id":     order.ClientID,
		"freelancer_id": order.FreelancerID,
	}

	goroutine.SafeGo(func() {
		for _, userID := range []uuid.UUID{order.ClientID, order.FreelancerID} {
			if err := s.notifier.EmitToUser(userID, EventProposalUpdated, payload); err != nil {
				logger.Log.Debugf("orders: не удалось доставить событие пользователю %s: %v", userID, err)
			}
		}
	})
}

// newOrderNumber генерирует номер заказа: монотонный по времени префикс
// плюс случайный хвост против коллизий в одну миллисекунду.
func newOrderNumber() string {
	return fmt.Sprintf("GF-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}
