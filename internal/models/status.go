package models

import (
	"math"
	"time"
)

type OrderStatus string

// Статусы жизненного цикла заказа.
const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusAccepted          OrderStatus = "accepted"
	OrderStatusPaymentConfirmed  OrderStatus = "payment_confirmed"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusRevisionRequested OrderStatus = "revision_requested"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusDisputed          OrderStatus = "disputed"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPaymentConfirmed,
		OrderStatusInProgress, OrderStatusDelivered, OrderStatusRevisionRequested,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusDisputed:
		return true
	}
	return false
}

// IsTerminal сообщает, что заказ больше не изменяется.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo проверяет переход по таблице допустимых переходов.
// Переход pending -> accepted в таблице отсутствует: принятие заказа
// фрилансером здесь сознательно не разрешено, пока продукт не подтвердит
// обратное (см. DESIGN.md).
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusAccepted:          {OrderStatusInProgress},
		OrderStatusPaymentConfirmed:  {OrderStatusInProgress},
		OrderStatusInProgress:        {OrderStatusDelivered},
		OrderStatusDelivered:         {OrderStatusRevisionRequested, OrderStatusCompleted},
		OrderStatusRevisionRequested: {OrderStatusInProgress},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// ActiveOrderStatuses — статусы, при которых заказ "живой" и может
// якорить переписку между сторонами.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPaymentConfirmed,
	OrderStatusInProgress,
	OrderStatusDelivered,
	OrderStatusRevisionRequested,
}

// ProgressFor возвращает процент выполнения заказа для индикатора в UI.
// in_progress взвешивается наличием хотя бы одной сдачи работы.
func ProgressFor(status OrderStatus, deliverablesCount int) int {
	switch status {
	case OrderStatusPending:
		return 5
	case OrderStatusAccepted:
		return 15
	case OrderStatusPaymentConfirmed:
		return 20
	case OrderStatusInProgress:
		if deliverablesCount > 0 {
			return 75
		}
		return 25
	case OrderStatusDelivered:
		return 90
	case OrderStatusRevisionRequested:
		return 60
	case OrderStatusCompleted:
		return 100
	case OrderStatusCancelled:
		return 0
	default:
		return 0
	}
}

// IsOverdueAt сообщает, просрочен ли заказ на момент now.
func IsOverdueAt(status OrderStatus, deliveryDate time.Time, now time.Time) bool {
	if status.IsTerminal() {
		return false
	}
	return deliveryDate.Before(now)
}

// DaysRemainingAt возвращает количество дней до дедлайна (может быть
// отрицательным при просрочке); для завершённых заказов всегда 0.
func DaysRemainingAt(status OrderStatus, deliveryDate time.Time, now time.Time) int {
	if status.IsTerminal() {
		return 0
	}
	return int(math.Ceil(deliveryDate.Sub(now).Hours() / 24))
}
