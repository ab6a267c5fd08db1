package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Image is a proxied photo held in the cache.
type Image struct {
	Data        []byte
	ContentType string
}

// ImageCache stores proxied source photos by URL.
type ImageCache interface {
	Get(ctx context.Context, sourceURL string) (*Image, error)
	Set(ctx context.Context, sourceURL string, img *Image) error
}

// RedisImageCache keeps photos in Redis hashes with a TTL. Photos larger than
// maxBytes are not cached.
type RedisImageCache struct {
	client   *redis.Client
	ttl      time.Duration
	maxBytes int
}

// NewRedisImageCache creates a cache on client.
func NewRedisImageCache(client *redis.Client, ttl time.Duration, maxBytes int) *RedisImageCache {
	return &RedisImageCache{client: client, ttl: ttl, maxBytes: maxBytes}
}

// ImageKey is the Redis key for a source URL.
func ImageKey(sourceURL string) string {
	sum := sha1.Sum([]byte(sourceURL))
	return "mls:image:" + hex.EncodeToString(sum[:])
}

// Get returns nil without error on a miss.
func (c *RedisImageCache) Get(ctx context.Context, sourceURL string) (*Image, error) {
	fields, err := c.client.HGetAll(ctx, ImageKey(sourceURL)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read image cache")
	}
	data, ok := fields["data"]
	if !ok || data == "" {
		return nil, nil
	}
	return &Image{Data: []byte(data), ContentType: fields["ct"]}, nil
}

// Set stores img. Oversized photos are skipped silently.
func (c *RedisImageCache) Set(ctx context.Context, sourceURL string, img *Image) error {
	if img == nil || len(img.Data) == 0 || (c.maxBytes > 0 && len(img.Data) > c.maxBytes) {
		return nil
	}
	key := ImageKey(sourceURL)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "ct", img.ContentType, "data", img.Data)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return errors.Wrap(err, "write image cache")
}
