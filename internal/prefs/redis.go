package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps preferences in Redis so several hosts share them.
type RedisBackend struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisBackend creates a backend on client. A zero ttl keeps keys forever.
func NewRedisBackend(client redis.Cmdable, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "quotewright:prefs:"
	}
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (b *RedisBackend) key(c Context) string {
	return b.prefix + c.Key()
}

// Save stores the payload as JSON.
func (b *RedisBackend) Save(ctx context.Context, c Context, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode preference: %w", err)
	}
	if err := b.client.Set(ctx, b.key(c), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", c.Key(), err)
	}
	return nil
}

// Load reads the payload for c.
func (b *RedisBackend) Load(ctx context.Context, c Context) (Payload, bool, error) {
	val, err := b.client.Get(ctx, b.key(c)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Payload{}, false, nil
	}
	if err != nil {
		return Payload{}, false, fmt.Errorf("failed to load preference %s: %w", c.Key(), err)
	}

	var p Payload
	if err := json.Unmarshal(val, &p); err != nil {
		return Payload{}, false, fmt.Errorf("failed to decode preference %s: %w", c.Key(), err)
	}
	return p, true, nil
}
