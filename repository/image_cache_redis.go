package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/heritageplates/backend/entity"
)

const imageCacheHashKey = "heritage:image_cache"

// RedisImageIndex keeps the image cache index in a single Redis hash (key → JSON entry).
type RedisImageIndex struct {
	Client *redis.Client
	Hash   string
}

func NewRedisImageIndex(client *redis.Client) *RedisImageIndex {
	return &RedisImageIndex{Client: client, Hash: imageCacheHashKey}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisImageIndex) LoadAll(ctx context.Context) ([]entity.ImageCacheEntry, error) {
	raw, err := r.Client.HGetAll(ctx, r.Hash).Result()
	if err != nil {
		return nil, err
	}
	out := make([]entity.ImageCacheEntry, 0, len(raw))
	for key, v := range raw {
		var e entity.ImageCacheEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			// unreadable entries are dropped so they cannot wedge startup
			_ = r.Client.HDel(ctx, r.Hash, key).Err()
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *RedisImageIndex) Save(ctx context.Context, e *entity.ImageCacheEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Client.HSet(ctx, r.Hash, e.Key, b).Err()
}

func (r *RedisImageIndex) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.Client.HDel(ctx, r.Hash, keys...).Err()
}
