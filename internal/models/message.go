package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы сообщений.
const (
	MessageTypeText   = "text"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Message описывает сообщение между двумя пользователями.
// Поле Content всегда хранит уже отфильтрованный текст: сырой ввод
// проходит через moderation.Filter до записи в базу.
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID string     `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID  `db:"sender_id" json:"sender_id"`
	RecipientID    uuid.UUID  `db:"recipient_id" json:"recipient_id"`
	Content        string     `db:"content" json:"content"`
	IsFiltered     bool       `db:"is_filtered" json:"is_filtered"`
	OrderID        *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	MsgType        string     `db:"msg_type" json:"type"`
	IsRead         bool       `db:"is_read" json:"is_read"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// ConversationSummary агрегирует диалог для списка чатов:
// последнее сообщение и количество непрочитанных.
type ConversationSummary struct {
	ConversationID string     `db:"conversation_id" json:"conversation_id"`
	LastMessage    Message    `json:"last_message"`
	UnreadCount    int        `json:"unread_count"`
	OtherUserID    uuid.UUID  `json:"other_user_id"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
}
