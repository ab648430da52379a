package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/olegbratus/gigflow-backend/internal/dto"
	"github.com/olegbratus/gigflow-backend/internal/http/handlers/common"
	"github.com/olegbratus/gigflow-backend/internal/models"
	"github.com/olegbratus/gigflow-backend/internal/pkg/apperror"
	"github.com/olegbratus/gigflow-backend/internal/service"
)

// OrderHandler обслуживает маршруты жизненного цикла заказов.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Create обрабатывает POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса"))
		return
	}

	deliveryDate, err := time.Parse(time.RFC3339, req.DeliveryDate)
	if err != nil {
		common.AbortWithError(c, apperror.New(apperror.ErrCodeValidation, "delivery_date должен быть в формате RFC3339"))
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), userID, service.CreateOrderInput{
		FreelancerID: req.FreelancerID,
		Title:        req.Title,
		Price:        req.Price,
		DeliveryDate: deliveryDate,
	})
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondData(c, http.StatusCreated, dto.NewOrderResponse(order))
}

// Get обрабатывает GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "неверный идентификатор заказа")
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, dto.NewOrderResponse(order))
}

// ListMy обрабатывает GET /api/orders/my.
func (h *OrderHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	orders, err := h.orders.ListMyOrders(c.Request.Context(), userID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, dto.NewOrderListResponse(orders))
}

// UpdateStatus обрабатывает PUT /api/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "неверный идентификатор заказа")
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса"))
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), actor, orderID, models.OrderStatus(req.Status), req.Note)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, dto.NewOrderResponse(order))
}

// SubmitDeliverables обрабатывает PUT /api/orders/:id/deliverables.
func (h *OrderHandler) SubmitDeliverables(c *gin.Context) {
	actor, err := currentActor(c)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, err.Error())
		return
	}

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "неверный идентификатор заказа")
		return
	}

	var req dto.SubmitDeliverablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное тело запроса"))
		return
	}

	order, err := h.orders.SubmitDeliverables(c.Request.Context(), actor, orderID, service.SubmitDeliverablesInput{
		Files:   req.Files,
		Message: req.Message,
	})
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	common.RespondData(c, http.StatusOK, dto.NewOrderResponse(order))
}

// currentActor собирает инициатора операции из контекста запроса.
func currentActor(c *gin.Context) (service.Actor, error) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{ID: userID, Role: role}, nil
}
