package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// PresenceService отслеживает, кто сейчас онлайн. Статус нужен только
// для индикатора в списке диалогов, поэтому потеря записи некритична.
type PresenceService interface {
	SetOnline(ctx context.Context, userID uuid.UUID) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

const (
	presenceKeyPrefix = "presence:"
	presenceOnlineSet = "presence:online"
)

// redisPresence хранит статусы в Redis: ключ с TTL на пользователя плюс
// общее множество онлайн-идентификаторов.
type redisPresence struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisPresence создаёт presence-сервис поверх Redis.
func NewRedisPresence(redisURL string, ttl time.Duration) (PresenceService, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("presence: некорректный REDIS_URL: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisPresence{client: goredis.NewClient(opts), ttl: ttl}, nil
}

func (p *redisPresence) SetOnline(ctx context.Context, userID uuid.UUID) error {
	pipe := p.client.Pipeline()
	pipe.Set(ctx, presenceKeyPrefix+userID.String(), time.Now().Format(time.RFC3339), p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID.String())
	_, err := pipe.Exec(ctx)
	return err
}

func (p *redisPresence) SetOffline(ctx context.Context, userID uuid.UUID) error {
	pipe := p.client.Pipeline()
	pipe.Del(ctx, presenceKeyPrefix+userID.String())
	pipe.SRem(ctx, presenceOnlineSet, userID.String())
	_, err := pipe.Exec(ctx)
	return err
}

func (p *redisPresence) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	// Ключ с TTL — источник истины: множество может содержать
	// устаревшие записи после падения процесса.
	exists, err := p.client.Exists(ctx, presenceKeyPrefix+userID.String()).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// noopPresence используется, когда Redis не сконфигурирован.
type noopPresence struct{}

// NewNoopPresence возвращает presence-сервис, который ничего не хранит.
func NewNoopPresence() PresenceService {
	return noopPresence{}
}

func (noopPresence) SetOnline(ctx context.Context, userID uuid.UUID) error  { return nil }
func (noopPresence) SetOffline(ctx context.Context, userID uuid.UUID) error { return nil }
func (noopPresence) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}
