package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestBlacklistRedis(t *testing.T) {
	mr, client := newMiniRedis(t)
	bl := NewTokenBlacklist(client)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	assert.True(t, mr.Exists("revoked_token:jti-1"))
	ttl := mr.TTL("revoked_token:jti-1")
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour, ttl)

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklistExpiredTokenIgnored(t *testing.T) {
	mr, client := newMiniRedis(t)
	bl := NewTokenBlacklist(client)

	require.NoError(t, bl.Revoke(context.Background(), "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("revoked_token:old"))
}

func TestBlacklistFallsBackToMemory(t *testing.T) {
	// Порт без сервера: любая команда Redis завершается ошибкой
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	bl := NewTokenBlacklist(client)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	bl.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti", now.Add(time.Minute)))
	revoked, err := bl.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklistWithoutRedis(t *testing.T) {
	bl := NewTokenBlacklist(nil)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti", time.Now().Add(time.Minute)))
	revoked, err := bl.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)
}
