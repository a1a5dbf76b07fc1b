package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelcomp/logger"

	"github.com/go-redis/redis/v8"
)

// ErrSnapshotMiss 没有保存过该项目的快照
var ErrSnapshotMiss = errors.New("timeline snapshot not cached")

// SnapshotCache 在 Redis 中保存每个项目最近一次成功加载的时间线文档
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache client 为 nil 时使用全局 RedisClient
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if client == nil {
		client = RedisClient
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// SnapshotKey 项目快照的 Redis 键
func SnapshotKey(projectID string) string {
	return fmt.Sprintf("timeline:snapshot:%s", projectID)
}

// Save 覆盖写入，ttl 为 0 时不过期
func (c *SnapshotCache) Save(ctx context.Context, projectID string, doc []byte) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := c.client.Set(ctx, SnapshotKey(projectID), doc, c.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", projectID, err)
	}
	logger.Debug("时间线快照已写入缓存",
		logger.String("projectId", projectID),
		logger.Int("size", len(doc)))
	return nil
}

// Load 读取快照，失败时指数退避重试一次
func (c *SnapshotCache) Load(ctx context.Context, projectID string) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	maxRetries := 2
	retryDelay := 100 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		data, err := c.client.Get(ctx, SnapshotKey(projectID)).Bytes()
		if err == nil {
			return data, nil
		}
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotMiss
		}
		lastErr = err

		if attempt < maxRetries-1 {
			logger.Warn("读取时间线快照失败，准备重试",
				logger.String("projectId", projectID),
				logger.Int("attempt", attempt+1),
				logger.ErrorField(err))
			select {
			case <-time.After(retryDelay):
				retryDelay *= 2
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("load snapshot %s: %w", projectID, lastErr)
}

// Delete 删除项目快照
func (c *SnapshotCache) Delete(ctx context.Context, projectID string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return c.client.Del(ctx, SnapshotKey(projectID)).Err()
}
