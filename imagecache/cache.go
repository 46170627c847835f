package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"storyreel/config"
)

// Cache is a minimal Redis-backed prompt->image-URL cache. Re-running a
// pipeline with an unchanged prompt reuses the image generated last time
// instead of paying for another generation. It is an accelerator, never a
// system of record: every method degrades to a no-op miss when Redis is not
// configured or unreachable.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Cache from the configuration. Returns nil when REDIS_ADDR is
// unset; a nil *Cache is safe to call.
func New(cfg config.Config) *Cache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Cache{client: client, ttl: 24 * time.Hour}
}

// Get returns the cached image URL for the prompt, or "" on miss.
func (c *Cache) Get(ctx context.Context, prompt, aspectRatio string) string {
	if c == nil {
		return ""
	}
	url, err := c.client.Get(ctx, cacheKey(prompt, aspectRatio)).Result()
	if err != nil {
		return ""
	}
	return url
}

// Put stores the image URL for the prompt. Failures are ignored.
func (c *Cache) Put(ctx context.Context, prompt, aspectRatio, imageURL string) {
	if c == nil || imageURL == "" {
		return
	}
	_ = c.client.Set(ctx, cacheKey(prompt, aspectRatio), imageURL, c.ttl).Err()
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func cacheKey(prompt, aspectRatio string) string {
	sum := sha256.Sum256([]byte(aspectRatio + "|" + prompt))
	return "storyreel:image:" + hex.EncodeToString(sum[:])
}
