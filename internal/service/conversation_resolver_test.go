package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
)

// fakeResolverOrders — заглушка хранилища заказов для резолвера.
type fakeResolverOrders struct {
	byID   map[uuid.UUID]*models.Order
	latest *models.Order
}

func (f *fakeResolverOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := f.byID[id]; ok {
		return order, nil
	}
	return nil, apperror.ErrOrderNotFound
}

func (f *fakeResolverOrders) FindLatestActiveBetween(_ context.Context, _, _ uuid.UUID) (*models.Order, error) {
	return f.latest, nil
}

func TestPairConversationID_Symmetric(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.Equal(t, PairConversationID(a, b), PairConversationID(b, a))
	assert.NotEqual(t, PairConversationID(a, b), PairConversationID(a, uuid.New()))
}

func TestAdminConversationID_SeparateNamespace(t *testing.T) {
	admin := uuid.New()
	target := uuid.New()

	id := AdminConversationID(admin, target)
	assert.Contains(t, id, "admin_")
	assert.NotEqual(t, id, PairConversationID(admin, target))
	// В отличие от парного идентификатора, порядок аргументов значим.
	assert.NotEqual(t, id, AdminConversationID(target, admin))
}

func TestResolver_FallsBackToPairID(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	resolver := NewConversationResolver(&fakeResolverOrders{})

	convID, order, err := resolver.Resolve(context.Background(), a, b, nil)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Equal(t, PairConversationID(a, b), convID)
}

func TestResolver_PrefersActiveOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	active := &models.Order{
		ID:             uuid.New(),
		ClientID:       a,
		FreelancerID:   b,
		Status:         models.OrderStatusInProgress,
		ConversationID: "order_GF-1",
	}
	resolver := NewConversationResolver(&fakeResolverOrders{latest: active})

	convID, order, err := resolver.Resolve(context.Background(), a, b, nil)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "order_GF-1", convID)
	assert.Equal(t, active.ID, order.ID)
}

func TestResolver_ExplicitOrderWins(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	older := &models.Order{
		ID:             uuid.New(),
		ClientID:       a,
		FreelancerID:   b,
		Status:         models.OrderStatusDelivered,
		ConversationID: "order_GF-old",
	}
	newer := &models.Order{
		ID:             uuid.New(),
		ClientID:       a,
		FreelancerID:   b,
		Status:         models.OrderStatusInProgress,
		ConversationID: "order_GF-new",
	}
	resolver := NewConversationResolver(&fakeResolverOrders{
		byID:   map[uuid.UUID]*models.Order{older.ID: older, newer.ID: newer},
		latest: newer,
	})

	convID, order, err := resolver.Resolve(context.Background(), a, b, &older.ID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "order_GF-old", convID)
}

func TestResolver_IgnoresForeignExplicitOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	foreign := &models.Order{
		ID:             uuid.New(),
		ClientID:       uuid.New(),
		FreelancerID:   uuid.New(),
		Status:         models.OrderStatusInProgress,
		ConversationID: "order_GF-foreign",
	}
	resolver := NewConversationResolver(&fakeResolverOrders{
		byID: map[uuid.UUID]*models.Order{foreign.ID: foreign},
	})

	convID, order, err := resolver.Resolve(context.Background(), a, b, &foreign.ID)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Equal(t, PairConversationID(a, b), convID)
}

func TestResolver_IgnoresMissingExplicitOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	missing := uuid.New()
	resolver := NewConversationResolver(&fakeResolverOrders{})

	convID, order, err := resolver.Resolve(context.Background(), a, b, &missing)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Equal(t, PairConversationID(a, b), convID)
}
