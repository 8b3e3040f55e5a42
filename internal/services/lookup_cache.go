package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// LookupCache кэширует данные автозаполнения по госномеру в Redis
type LookupCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	enabled     bool
}

// NewLookupCache создает кэш; без клиента Redis кэш выключен
func NewLookupCache(client *redis.Client, ttl time.Duration, enabled bool) *LookupCache {
	if client == nil || !enabled {
		return &LookupCache{enabled: false}
	}
	return &LookupCache{
		redisClient: client,
		ttl:         ttl,
		enabled:     true,
	}
}

// Get получает данные из кэша
func (c *LookupCache) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	val, err := c.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("ошибка при получении данных из кэша: %w", err)
	}

	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("ошибка при десериализации данных из кэша: %w", err)
	}

	return true, nil
}

// Set сохраняет данные в кэш
func (c *LookupCache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации данных для кэша: %w", err)
	}

	if err := c.redisClient.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка при сохранении данных в кэш: %w", err)
	}

	return nil
}

// Invalidate удаляет ключ, например после новой заявки по этому ТС
func (c *LookupCache) Invalidate(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	if err := c.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("ошибка при удалении ключа из кэша: %w", err)
	}
	return nil
}

// InvalidateMatching удаляет все ключи по шаблону (через SCAN)
func (c *LookupCache) InvalidateMatching(ctx context.Context, pattern string) error {
	if !c.enabled {
		return nil
	}
	iter := c.redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("ошибка при поиске ключей кэша %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("ошибка при удалении ключей кэша %s: %w", pattern, err)
	}
	return nil
}

// CustomerLookupPattern - все записи автозаполнения клиента
func (c *LookupCache) CustomerLookupPattern(customerID uint) string {
	return fmt.Sprintf("vehicle_lookup:%d:*", customerID)
}

// PlateLookupPattern - записи автозаполнения ТС у всех клиентов
func (c *LookupCache) PlateLookupPattern(plate string) string {
	return fmt.Sprintf("vehicle_lookup:*:%s", plate)
}

// VehicleLookupKey генерирует ключ кэша автозаполнения. Данные разделяются по клиентам
func (c *LookupCache) VehicleLookupKey(customerID uint, plate string) string {
	return fmt.Sprintf("vehicle_lookup:%d:%s", customerID, plate)
}
