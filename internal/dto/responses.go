package dto

import (
	"github.com/olegbratus/gigflow-backend/internal/models"
)

// Envelope — стандартный конверт ответа API.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Warning    string      `json:"warning,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ErrorEnvelope — конверт ошибки.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Pagination — метаданные страницы.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// AuthResponse — пользователь плюс пара токенов.
type AuthResponse struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
}

// UserResponse — публичное представление пользователя.
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// NewUserResponse собирает публичное представление пользователя.
func NewUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		DisplayName: u.DisplayName,
	}
}

// OrderResponse — заказ с вычисленными полями прогресса и сроков.
type OrderResponse struct {
	*models.Order
	Progress      int  `json:"progress"`
	IsOverdue     bool `json:"is_overdue"`
	DaysRemaining int  `json:"days_remaining"`
}

// NewOrderResponse собирает представление заказа.
func NewOrderResponse(order *models.Order) *OrderResponse {
	return &OrderResponse{
		Order:         order,
		Progress:      order.Progress(),
		IsOverdue:     order.IsOverdue(),
		DaysRemaining: order.DaysRemaining(),
	}
}

// NewOrderListResponse собирает список представлений заказов.
func NewOrderListResponse(orders []models.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}

// ConversationMessagesResponse — сообщения диалога плюс заказ-якорь.
type ConversationMessagesResponse struct {
	Messages []models.Message `json:"messages"`
	Order    *OrderResponse   `json:"order,omitempty"`
}

// UnreadCountResponse — количество непрочитанных сообщений.
// Ключ unreadCount зафиксирован контрактом с фронтендом.
type UnreadCountResponse struct {
	Count int `json:"unreadCount"`
}

// PresenceResponse — онлайн-статус пользователя.
type PresenceResponse struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}
