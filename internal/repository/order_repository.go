package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
)

const orderColumns = `
	o.id, o.order_number, o.client_id, o.freelancer_id, o.title, o.price,
	o.status, o.conversation_id, o.delivery_date, o.actual_delivery_date,
	o.last_message_at, o.created_at, o.updated_at,
	(SELECT COUNT(*) FROM order_deliverables d WHERE d.order_id = o.id) AS deliverables_count`

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, client_id, freelancer_id, title, price,
			status, conversation_id, delivery_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, order.ID, order.OrderNumber, order.ClientID, order.FreelancerID, order.Title,
		order.Price, order.Status, order.ConversationID, order.DeliveryDate,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return err
	}

	// Создание заказа — тоже событие в истории статусов.
	return r.appendHistory(ctx, r.db, order.ID, &order.ClientID, order.Status, nil)
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByParty возвращает заказы, где пользователь выступает любой из сторон.
func (r *OrderRepository) ListByParty(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.client_id = $1 OR o.freelancer_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	return orders, err
}

// FindLatestActiveBetween ищет самый свежий "живой" заказ между парой
// пользователей независимо от того, кто из них клиент.
func (r *OrderRepository) FindLatestActiveBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Order, error) {
	statuses := make([]string, 0, len(models.ActiveOrderStatuses))
	for _, s := range models.ActiveOrderStatuses {
		statuses = append(statuses, string(s))
	}

	var order models.Order
	err := r.db.GetContext(ctx, &order, `
		SELECT `+orderColumns+` FROM orders o
		WHERE ((o.client_id = $1 AND o.freelancer_id = $2)
			OR (o.client_id = $2 AND o.freelancer_id = $1))
			AND o.status = ANY($3)
		ORDER BY o.created_at DESC
		LIMIT 1
	`, userA, userB, pq.Array(statuses))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionStatus выполняет условное обновление статуса (CAS):
// статус меняется только если он всё ещё равен expected. Запись в историю
// делается в той же транзакции, поэтому проигравшая гонку сторона получает
// ошибку недопустимого перехода, а не молча затирает чужое обновление.
func (r *OrderRepository) TransitionStatus(ctx context.Context, orderID uuid.UUID, expected, next models.OrderStatus, actorID *uuid.UUID, note *string, stampDelivery bool) (*models.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var res sql.Result
	if stampDelivery {
		res, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, actual_delivery_date = NOW(), updated_at = NOW()
			WHERE id = $2 AND status = $3
		`, next, orderID, expected)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3
		`, next, orderID, expected)
	}
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Либо заказа нет, либо статус уже сменили — различаем.
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID); err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, apperror.ErrInvalidTransition
	}

	if err := r.appendHistory(ctx, tx, orderID, actorID, next, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, orderID)
}

// SubmitDeliverable фиксирует сдачу работы: добавляет запись, принудительно
// переводит заказ в delivered и отмечает фактическую дату сдачи. Операция
// атомарна и выполняется независимо от текущего статуса.
func (r *OrderRepository) SubmitDeliverable(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, deliverable *models.OrderDeliverable) (*models.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, actual_delivery_date = NOW(), updated_at = NOW()
		WHERE id = $2
	`, models.OrderStatusDelivered, orderID)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, apperror.ErrOrderNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_deliverables (id, order_id, message, files, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, deliverable.ID, orderID, deliverable.Message, deliverable.Files, deliverable.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := r.appendHistory(ctx, tx, orderID, actorID, models.OrderStatusDelivered, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, orderID)
}

// TouchLastMessage обновляет метку последнего сообщения в чате заказа.
func (r *OrderRepository) TouchLastMessage(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders SET last_message_at = $1 WHERE id = $2
	`, at, orderID)
	return err
}

func (r *OrderRepository) AddRevision(ctx context.Context, orderID uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_revisions (id, order_id, reason, requested_at)
		VALUES ($1, $2, $3, NOW())
	`, uuid.New(), orderID, reason)
	return err
}

// ResolveOpenRevisions закрывает все незакрытые запросы доработки.
func (r *OrderRepository) ResolveOpenRevisions(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_revisions SET resolved_at = NOW()
		WHERE order_id = $1 AND resolved_at IS NULL
	`, orderID)
	return err
}

func (r *OrderRepository) ListDeliverables(ctx context.Context, orderID uuid.UUID) ([]models.OrderDeliverable, error) {
	var items []models.OrderDeliverable
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM order_deliverables WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	return items, err
}

func (r *OrderRepository) ListRevisions(ctx context.Context, orderID uuid.UUID) ([]models.OrderRevision, error) {
	var items []models.OrderRevision
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM order_revisions WHERE order_id = $1 ORDER BY requested_at ASC
	`, orderID)
	return items, err
}

func (r *OrderRepository) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var items []models.OrderStatusHistory
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	return items, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *OrderRepository) appendHistory(ctx context.Context, ex execer, orderID uuid.UUID, actorID *uuid.UUID, status models.OrderStatus, note *string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO order_status_history (id, order_id, actor_id, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, uuid.New(), orderID, actorID, status, note)
	return err
}
