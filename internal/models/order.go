package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Order описывает коммерческую сделку между клиентом и фрилансером.
type Order struct {
	ID                 uuid.UUID   `db:"id" json:"id"`
	OrderNumber        string      `db:"order_number" json:"order_number"`
	ClientID           uuid.UUID   `db:"client_id" json:"client_id"`
	FreelancerID       uuid.UUID   `db:"freelancer_id" json:"freelancer_id"`
	Title              string      `db:"title" json:"title"`
	Price              *float64    `db:"price" json:"price,omitempty"`
	Status             OrderStatus `db:"status" json:"status"`
	ConversationID     string      `db:"conversation_id" json:"conversation_id"`
	DeliveryDate       time.Time   `db:"delivery_date" json:"delivery_date"`
	ActualDeliveryDate *time.Time  `db:"actual_delivery_date" json:"actual_delivery_date,omitempty"`
	LastMessageAt      *time.Time  `db:"last_message_at" json:"last_message_at,omitempty"`
	DeliverablesCount  int         `db:"deliverables_count" json:"-"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
	// Связанные данные (загружаются отдельно)
	Deliverables  []OrderDeliverable   `json:"deliverables,omitempty"`
	Revisions     []OrderRevision      `json:"revisions,omitempty"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty"`
}

// Progress возвращает производный процент выполнения заказа.
func (o *Order) Progress() int {
	count := o.DeliverablesCount
	if len(o.Deliverables) > count {
		count = len(o.Deliverables)
	}
	return ProgressFor(o.Status, count)
}

// IsOverdue сообщает, просрочен ли заказ.
func (o *Order) IsOverdue() bool {
	return IsOverdueAt(o.Status, o.DeliveryDate, time.Now())
}

// DaysRemaining возвращает количество дней до дедлайна.
func (o *Order) DaysRemaining() int {
	return DaysRemainingAt(o.Status, o.DeliveryDate, time.Now())
}

// IsParty сообщает, является ли пользователь стороной заказа.
func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.ClientID == userID || o.FreelancerID == userID
}

// OrderDeliverable описывает сдачу работы фрилансером (append-only).
type OrderDeliverable struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OrderID   uuid.UUID       `db:"order_id" json:"order_id"`
	Message   string          `db:"message" json:"message"`
	Files     json.RawMessage `db:"files" json:"files,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// OrderRevision описывает запрос доработки (append-only).
type OrderRevision struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	Reason      string     `db:"reason" json:"reason"`
	RequestedAt time.Time  `db:"requested_at" json:"requested_at"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// OrderStatusHistory фиксирует каждый принятый переход статуса.
// Записи только добавляются и никогда не изменяются.
type OrderStatusHistory struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	OrderID   uuid.UUID   `db:"order_id" json:"order_id"`
	ActorID   *uuid.UUID  `db:"actor_id" json:"actor_id,omitempty"`
	Status    OrderStatus `db:"status" json:"status"`
	Note      *string     `db:"note" json:"note,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
