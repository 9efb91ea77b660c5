package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

const (
	requestKeyPrefix = "dinepilot:request:"
	requestKeyTTL    = 10 * time.Minute
)

type RedisAdapter struct {
	client *redis.Client
	key    string
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client, key: OrdersKey}
}

func (r *RedisAdapter) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}
	return DecodeOrders(data)
}

func (r *RedisAdapter) SaveOrders(ctx context.Context, orders []domain.Order) error {
	data, err := EncodeOrders(orders)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisAdapter) DeleteOrders(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisAdapter) ClaimRequest(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, requestKeyPrefix+key, 1, requestKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseRequest(ctx context.Context, key string) error {
	return r.client.Del(ctx, requestKeyPrefix+key).Err()
}
