package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusAccepted, OrderStatusInProgress, true},
		{OrderStatusPaymentConfirmed, OrderStatusInProgress, true},
		{OrderStatusInProgress, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusRevisionRequested, true},
		{OrderStatusDelivered, OrderStatusCompleted, true},
		{OrderStatusRevisionRequested, OrderStatusInProgress, true},

		// pending не имеет исходящих переходов в таблице.
		{OrderStatusPending, OrderStatusAccepted, false},
		{OrderStatusPending, OrderStatusInProgress, false},
		{OrderStatusPending, OrderStatusCancelled, false},

		{OrderStatusAccepted, OrderStatusDelivered, false},
		{OrderStatusInProgress, OrderStatusCompleted, false},
		{OrderStatusDelivered, OrderStatusInProgress, false},
		{OrderStatusCompleted, OrderStatusInProgress, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusDisputed, OrderStatusCompleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatus_IsValid(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending, OrderStatusAccepted, OrderStatusPaymentConfirmed,
		OrderStatusInProgress, OrderStatusDelivered, OrderStatusRevisionRequested,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusDisputed,
	} {
		assert.True(t, s.IsValid(), string(s))
	}

	assert.False(t, OrderStatus("shipped").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatusDisputed.IsTerminal())
}

func TestProgressFor(t *testing.T) {
	assert.Equal(t, 5, ProgressFor(OrderStatusPending, 0))
	assert.Equal(t, 15, ProgressFor(OrderStatusAccepted, 0))
	assert.Equal(t, 20, ProgressFor(OrderStatusPaymentConfirmed, 0))
	assert.Equal(t, 25, ProgressFor(OrderStatusInProgress, 0))
	assert.Equal(t, 75, ProgressFor(OrderStatusInProgress, 2))
	assert.Equal(t, 90, ProgressFor(OrderStatusDelivered, 1))
	assert.Equal(t, 60, ProgressFor(OrderStatusRevisionRequested, 1))
	assert.Equal(t, 100, ProgressFor(OrderStatusCompleted, 1))
	assert.Equal(t, 0, ProgressFor(OrderStatusCancelled, 1))
}

// Прогресс по обычному маршруту жизненного цикла не убывает, за
// исключением запроса доработки.
func TestProgressFor_MonotonicOnHappyPath(t *testing.T) {
	path := []OrderStatus{
		OrderStatusPending,
		OrderStatusAccepted,
		OrderStatusPaymentConfirmed,
		OrderStatusInProgress,
		OrderStatusDelivered,
		OrderStatusCompleted,
	}

	prev := -1
	for _, s := range path {
		p := ProgressFor(s, 0)
		assert.GreaterOrEqual(t, p, prev, string(s))
		prev = p
	}
}

func TestIsOverdueAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	assert.True(t, IsOverdueAt(OrderStatusInProgress, past, now))
	assert.False(t, IsOverdueAt(OrderStatusInProgress, future, now))

	// Завершённые заказы просроченными не считаются.
	assert.False(t, IsOverdueAt(OrderStatusCompleted, past, now))
	assert.False(t, IsOverdueAt(OrderStatusCancelled, past, now))
}

func TestDaysRemainingAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysRemainingAt(OrderStatusInProgress, now.Add(72*time.Hour), now))
	// Неполные сутки округляются вверх.
	assert.Equal(t, 1, DaysRemainingAt(OrderStatusInProgress, now.Add(2*time.Hour), now))
	assert.Equal(t, -2, DaysRemainingAt(OrderStatusInProgress, now.Add(-48*time.Hour), now))
	assert.Equal(t, 0, DaysRemainingAt(OrderStatusCompleted, now.Add(72*time.Hour), now))
}
