package cache

import (
	"context"
	domainDevice "device-finance-backoffice/internal/domain/device"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "device:presence:"

// RedisPresence keeps the last check-in of each device with a TTL equal to the
// online window, so an expired key means the device is offline.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPresence(client *redis.Client, ttl time.Duration) domainDevice.PresenceTracker {
	return &RedisPresence{client: client, ttl: ttl}
}

func (p *RedisPresence) Touch(ctx context.Context, deviceID string, at time.Time) error {
	if err := p.client.Set(ctx, presenceKeyPrefix+deviceID, at.UTC().Format(time.RFC3339Nano), p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record presence: %w", err)
	}
	return nil
}

func (p *RedisPresence) LastSeen(ctx context.Context, deviceID string) (*time.Time, error) {
	val, err := p.client.Get(ctx, presenceKeyPrefix+deviceID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}

	seen, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, fmt.Errorf("malformed presence value: %w", err)
	}
	return &seen, nil
}

func (p *RedisPresence) Window() time.Duration {
	return p.ttl
}

// MemoryPresence is used when no Redis address is configured.
type MemoryPresence struct {
	mu     sync.RWMutex
	seen   map[string]time.Time
	window time.Duration
}

func NewMemoryPresence(window time.Duration) *MemoryPresence {
	return &MemoryPresence{
		seen:   make(map[string]time.Time),
		window: window,
	}
}

func (p *MemoryPresence) Touch(_ context.Context, deviceID string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.seen[deviceID]; !ok || at.After(prev) {
		p.seen[deviceID] = at
	}
	return nil
}

func (p *MemoryPresence) LastSeen(_ context.Context, deviceID string) (*time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen, ok := p.seen[deviceID]
	if !ok {
		return nil, nil
	}
	return &seen, nil
}

func (p *MemoryPresence) Window() time.Duration {
	return p.window
}

// NewRedisClient pings the server before handing the client out.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
