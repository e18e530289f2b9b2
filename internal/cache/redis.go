package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Caolboy/LABERS-HOST/config"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	catalogTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, catalogTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		catalogTTL: catalogTTL,
	}
}

// Client exposes the connection so other stores can share it.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.getJSON(ctx, categoriesKey(), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *RedisCache) SetCategories(ctx context.Context, categories []domain.Category) error {
	return c.setJSON(ctx, categoriesKey(), categories)
}

func (c *RedisCache) GetItems(ctx context.Context, categoryID int64) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	if err := c.getJSON(ctx, itemsKey(categoryID), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *RedisCache) SetItems(ctx context.Context, categoryID int64, items []domain.CatalogItem) error {
	return c.setJSON(ctx, itemsKey(categoryID), items)
}

// InvalidateItems drops every cached category item listing, so equipment
// quantities are read from Postgres again on the next request.
func (c *RedisCache) InvalidateItems(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, itemsKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan catalog items: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// getJSON leaves dst untouched on a miss.
func (c *RedisCache) getJSON(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.catalogTTL).Err()
}

func categoriesKey() string {
	return "cache:catalog:categories"
}

const itemsKeyPattern = "cache:catalog:items:*"

func itemsKey(categoryID int64) string {
	return fmt.Sprintf("cache:catalog:items:%d", categoryID)
}
