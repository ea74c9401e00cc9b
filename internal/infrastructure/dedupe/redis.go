package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

// RedisDeduper claims delivery keys with SET NX so that at most one worker
// replica forwards a given event while the claim lives.
type RedisDeduper struct {
	client *redis.Client
	prefix string
}

func NewRedisDeduper(addr, prefix string) (*RedisDeduper, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisDeduper{client: client, prefix: prefix}, nil
}

func (d *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, domain.WrapError(domain.ErrTemporary, "claim delivery", err)
	}
	return ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, d.prefix+key).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "release delivery", err)
	}
	return nil
}

func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
