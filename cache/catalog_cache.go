package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CatalogPrefix 目录缓存键前缀
const CatalogPrefix = "catalog:"

// Invalidator drops every cached catalog listing.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// CatalogCache stores serialized catalog listings. Entries are only ever
// invalidated, never updated in place.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache 创建目录缓存
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

// Key 根据规范化后的查询生成缓存键
func (c *CatalogCache) Key(query any) (string, error) {
	b, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("failed to marshal catalog query: %w", err)
	}
	return CatalogPrefix + string(b), nil
}

// Get decodes the cached value into dst and reports whether it was present.
func (c *CatalogCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get catalog cache: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal catalog cache: %w", err)
	}
	return true, nil
}

// Set 写入缓存并设置过期时间
func (c *CatalogCache) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog cache: %w", err)
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set catalog cache: %w", err)
	}
	return nil
}

// Invalidate 清除所有 catalog:* 键
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, CatalogPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan catalog keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete catalog keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
