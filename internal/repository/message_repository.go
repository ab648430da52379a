package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/olegbratus/gigflow-backend/internal/models"
)

type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, recipient_id, content,
			is_filtered, order_id, msg_type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.RecipientID, msg.Content,
		msg.IsFiltered, msg.OrderID, msg.MsgType, msg.IsRead, msg.CreatedAt)
	return err
}

// ListByConversation возвращает страницу сообщений диалога, новые первыми
// (порядок хранения; для отображения сервис разворачивает страницу).
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	return messages, err
}

// MarkConversationRead помечает прочитанными все сообщения диалога,
// адресованные получателю. Отправленные им самим сообщения не трогаем.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, conversationID string, recipientID uuid.UUID, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = $1
		WHERE conversation_id = $2 AND recipient_id = $3 AND is_read = FALSE
	`, at, conversationID, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUnread возвращает общее количество непрочитанных сообщений
// пользователя по всем диалогам.
func (r *MessageRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND is_read = FALSE
	`, userID)
	return count, err
}

// ListConversationSummaries группирует сообщения пользователя по диалогам:
// последнее сообщение каждого диалога как превью плюс счётчик непрочитанных.
// Пагинация идёт по диалогам, не по сообщениям.
func (r *MessageRepository) ListConversationSummaries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ConversationSummary, error) {
	var lastMessages []models.Message
	err := r.db.SelectContext(ctx, &lastMessages, `
		SELECT DISTINCT ON (conversation_id) *
		FROM messages
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY conversation_id, created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}

	unread, err := r.unreadByConversation(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(lastMessages))
	for _, msg := range lastMessages {
		other := msg.SenderID
		if other == userID {
			other = msg.RecipientID
		}
		summaries = append(summaries, models.ConversationSummary{
			ConversationID: msg.ConversationID,
			LastMessage:    msg,
			UnreadCount:    unread[msg.ConversationID],
			OtherUserID:    other,
			OrderID:        msg.OrderID,
		})
	}

	// Свежие диалоги наверху.
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})

	if offset >= len(summaries) {
		return []models.ConversationSummary{}, nil
	}
	end := offset + limit
	if end > len(summaries) {
		end = len(summaries)
	}
	return summaries[offset:end], nil
}

func (r *MessageRepository) unreadByConversation(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT conversation_id, COUNT(*) AS cnt
		FROM messages
		WHERE recipient_id = $1 AND is_read = FALSE
		GROUP BY conversation_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var conversationID string
		var cnt int
		if err := rows.Scan(&conversationID, &cnt); err != nil {
			return nil, err
		}
		counts[conversationID] = cnt
	}
	return counts, rows.Err()
}
