package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

// RegisterRequest — запрос регистрации.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Role        string `json:"role" binding:"required"`
	DisplayName string `json:"display_name"`
}

// LoginRequest — запрос входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest — запрос обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateOrderRequest — запрос создания заказа.
type CreateOrderRequest struct {
	FreelancerID uuid.UUID `json:"freelancer_id" binding:"required"`
	Title        string    `json:"title" binding:"required"`
	Price        *float64  `json:"price"`
	DeliveryDate string    `json:"delivery_date" binding:"required"`
}

// UpdateOrderStatusRequest — запрос перехода статуса заказа.
type UpdateOrderStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Note   *string `json:"note"`
}

// SubmitDeliverablesRequest — запрос сдачи работы.
type SubmitDeliverablesRequest struct {
	Message string          `json:"message"`
	Files   json.RawMessage `json:"files"`
}

// SendMessageRequest — запрос отправки сообщения.
type SendMessageRequest struct {
	RecipientID uuid.UUID  `json:"recipient_id" binding:"required"`
	Content     string     `json:"content" binding:"required"`
	OrderID     *uuid.UUID `json:"order_id"`
	Type        string     `json:"type"`
}

// MarkReadRequest — запрос пометки диалога прочитанным.
type MarkReadRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}
