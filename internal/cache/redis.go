// Package cache предоставляет обёртку над Redis для отметок об уже отправленных напоминаниях.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duragon35SG/habit-bot/internal/config"
)

// Cache клиент Redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// FiredKey ключ отметки о напоминании пользователю userID в слот slot за дату date.
func FiredKey(userID, date, slot string) string {
	return "reminder:fired:" + userID + ":" + date + ":" + slot
}

// MarkOnce ставит отметку key на время ttl. Возвращает true, если отметки ещё не было.
func (c *Cache) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	const op = "cache.MarkOnce"
	ok, err := c.Db.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	return c.Db.Close()
}
