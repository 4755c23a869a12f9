package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"poolSnapshots/internal/model"
)

const redisKeyPrefix = "price:"

// MemoryCache keeps prices in process until they are older than the TTL.
type MemoryCache struct {
	ttl    time.Duration
	now    func() time.Time
	prices *xsync.Map[string, model.TokenPrice]
}

func NewMemoryCache(ttl time.Duration, now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{ttl: ttl, now: now, prices: xsync.NewMap[string, model.TokenPrice]()}
}

func (c *MemoryCache) Get(_ context.Context, address string) (model.TokenPrice, bool, error) {
	price, ok := c.prices.Load(address)
	if !ok {
		return model.TokenPrice{}, false, nil
	}
	if c.ttl > 0 && c.now().Sub(time.Unix(price.Timestamp, 0)) > c.ttl {
		c.prices.Delete(address)
		return model.TokenPrice{}, false, nil
	}
	return price, true, nil
}

func (c *MemoryCache) Set(_ context.Context, prices []model.TokenPrice) error {
	for _, price := range prices {
		c.prices.Store(price.Address, price)
	}
	return nil
}

// RedisCache stores prices as JSON values that expire after the TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}

	logger.Info("price cache connected", zap.String("addr", addr), zap.Duration("ttl", ttl))
	return &RedisCache{client: rdb, ttl: ttl}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, address string) (model.TokenPrice, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+address).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.TokenPrice{}, false, nil
	}
	if err != nil {
		return model.TokenPrice{}, false, fmt.Errorf("redis get: %w", err)
	}
	var price model.TokenPrice
	if err := json.Unmarshal(raw, &price); err != nil {
		return model.TokenPrice{}, false, fmt.Errorf("decode cached price: %w", err)
	}
	return price, true, nil
}

func (c *RedisCache) Set(ctx context.Context, prices []model.TokenPrice) error {
	pipe := c.client.Pipeline()
	for _, price := range prices {
		raw, err := json.Marshal(price)
		if err != nil {
			return fmt.Errorf("encode price: %w", err)
		}
		pipe.Set(ctx, redisKeyPrefix+price.Address, raw, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
