package blob

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix     = "photo:"
	tombstoneKeyPrefix = "photo-deleted:"
)

// Cached is a read-through Redis cache in front of another Store. Content
// under a blob id never changes, so entries are only evicted on Delete or
// when their TTL runs out.
//
// Delete leaves a tombstone for the id. A fill that raced with the delete
// sees the tombstone right after writing its entry and removes it again.
type Cached struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewCached wraps next with a cache held in client.
func NewCached(next Store, client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *Cached {
	return &Cached{next: next, client: client, ttl: ttl, logger: logger}
}

// Put stores data in the underlying store. The cache fills on first read.
func (c *Cached) Put(ctx context.Context, data []byte) (string, error) {
	return c.next.Put(ctx, data)
}

// Get serves the blob from Redis when present and fills the cache otherwise.
// Cache failures fall through to the underlying store.
func (c *Cached) Get(ctx context.Context, id string) ([]byte, error) {
	key := cacheKeyPrefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		c.logger.Debugw("photo cache hit", "blob_id", id)
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warnw("photo cache read failed", "blob_id", id, "error", err)
	}

	data, err = c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.fill(ctx, id, data)
	return data, nil
}

// fill caches data unless the blob has been deleted in the meantime.
func (c *Cached) fill(ctx context.Context, id string, data []byte) {
	key := cacheKeyPrefix + id

	var deleted *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, c.ttl)
		deleted = pipe.Exists(ctx, tombstoneKeyPrefix+id)
		return nil
	})
	if err != nil {
		c.logger.Warnw("photo cache fill failed", "blob_id", id, "error", err)
		return
	}
	if deleted.Val() > 0 {
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.logger.Warnw("photo cache eviction failed", "blob_id", id, "error", err)
		}
	}
}

// Delete removes the blob, then marks the id deleted and evicts its entry.
func (c *Cached) Delete(ctx context.Context, id string) error {
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tombstoneKeyPrefix+id, 1, c.ttl)
		pipe.Del(ctx, cacheKeyPrefix+id)
		return nil
	})
	if err != nil {
		c.logger.Warnw("photo cache eviction failed", "blob_id", id, "error", err)
	}
	return nil
}
