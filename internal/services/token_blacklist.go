package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist хранит отозванные refresh-токены до истечения их срока.
// Если Redis недоступен, используется память процесса
type TokenBlacklist struct {
	redisClient *redis.Client

	mu     sync.Mutex
	memory map[string]time.Time
	now    func() time.Time
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{
		redisClient: client,
		memory:      make(map[string]time.Time),
		now:         time.Now,
	}
}

func revokedKey(jti string) string {
	return "revoked_token:" + jti
}

// Revoke помечает токен отозванным на оставшееся время его жизни
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}

	if b.redisClient != nil {
		err := b.redisClient.Set(ctx, revokedKey(jti), "1", ttl).Err()
		if err == nil {
			return nil
		}
		log.Printf("Не удалось сохранить отозванный токен в Redis, используем память: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.memory[jti] = expiresAt
	b.cleanupLocked()
	return nil
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if b.redisClient != nil {
		n, err := b.redisClient.Exists(ctx, revokedKey(jti)).Result()
		if err == nil && n > 0 {
			return true, nil
		}
		if err != nil {
			log.Printf("Ошибка проверки токена в Redis: %v", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.memory[jti]
	if !ok {
		return false, nil
	}
	if !b.now().Before(exp) {
		delete(b.memory, jti)
		return false, nil
	}
	return true, nil
}

func (b *TokenBlacklist) cleanupLocked() {
	now := b.now()
	for jti, exp := range b.memory {
		if !now.Before(exp) {
			delete(b.memory, jti)
		}
	}
}
