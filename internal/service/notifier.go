package service

import "github.com/google/uuid"

// События, которые сервер рассылает через realtime-канал.
const (
	EventNewMessage        = "new_message"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventProposalUpdated   = "proposal_updated"
)

// Notifier — способность доставлять события подключённым клиентам.
// Реализуется websocket-хабом и передаётся сервисам при конструировании:
// сервисы не тянут глобальный хаб из окружения.
//
// Доставка всегда best-effort: ошибка отправки никогда не считается
// ошибкой бизнес-операции, источником истины остаётся база.
type Notifier interface {
	EmitToUser(userID uuid.UUID, event string, data interface{}) error
	EmitToRoom(room string, event string, data interface{}) error
}
