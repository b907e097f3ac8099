package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"taskboard/internal/model"
)

const (
	taskDetailPrefix = "task:detail:"
	taskDetailTTL    = 5 * time.Minute
)

// TaskCache keeps assembled task detail views in redis. All failures are
// soft: a cache miss is returned and the caller falls through to the
// database.
type TaskCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewTaskCache(client *redis.Client, logger *zap.Logger) *TaskCache {
	return &TaskCache{
		client: client,
		logger: logger,
	}
}

func (c *TaskCache) Get(ctx context.Context, taskID string) (*model.Task, bool) {
	data, err := c.client.Get(ctx, taskDetailPrefix+taskID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Error("Failed to read task from cache",
				zap.Error(err),
				zap.String("task_id", taskID),
			)
		}
		return nil, false
	}

	var t model.Task
	if err := json.Unmarshal(data, &t); err != nil {
		c.logger.Error("Failed to decode cached task",
			zap.Error(err),
			zap.String("task_id", taskID),
		)
		return nil, false
	}

	c.logger.Debug("Task cache hit", zap.String("task_id", taskID))
	return &t, true
}

func (c *TaskCache) Set(ctx context.Context, t *model.Task) {
	data, err := json.Marshal(t)
	if err != nil {
		c.logger.Error("Failed to encode task for cache",
			zap.Error(err),
			zap.String("task_id", t.ID),
		)
		return
	}
	if err := c.client.Set(ctx, taskDetailPrefix+t.ID, data, taskDetailTTL).Err(); err != nil {
		c.logger.Error("Failed to write task to cache",
			zap.Error(err),
			zap.String("task_id", t.ID),
		)
	}
}

func (c *TaskCache) Invalidate(ctx context.Context, taskID string) {
	if err := c.client.Del(ctx, taskDetailPrefix+taskID).Err(); err != nil {
		c.logger.Error("Failed to invalidate cached task",
			zap.Error(err),
			zap.String("task_id", taskID),
		)
	}
}
