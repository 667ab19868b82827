package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/logging"
)

const (
	redisKeyPrefix = "harvester:task:"
	redisIndexKey  = "harvester:tasks"
)

// RedisTaskStore keeps run status in Redis so it survives restarts and is
// visible to every server instance sharing the database
type RedisTaskStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

// NewRedisTaskStore connects to the configured Redis and verifies the connection
func NewRedisTaskStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (*RedisTaskStore, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}

	timeout := cfg.Redis.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisTaskStoreWithClient(client, cfg.Redis.TaskTTL, logger), nil
}

// NewRedisTaskStoreWithClient wraps an existing client
func NewRedisTaskStoreWithClient(client *redis.Client, ttl time.Duration, logger logging.Logger) *RedisTaskStore {
	return &RedisTaskStore{
		client: client,
		ttl:    ttl,
		logger: logging.ForComponent(logger, "redis_task_store"),
	}
}

func taskKey(processID string) string {
	return redisKeyPrefix + processID
}

// Store stores a task result and indexes it by creation time
func (s *RedisTaskStore) Store(ctx context.Context, result *TaskResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKey(result.ProcessID), data, s.ttl)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(result.CreatedAt.UnixNano()),
			Member: result.ProcessID,
		})
		return nil
	})
	return err
}

// Get retrieves a task result by process ID
func (s *RedisTaskStore) Get(ctx context.Context, processID string) (*TaskResult, error) {
	data, err := s.client.Get(ctx, taskKey(processID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	var result TaskResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode task result %s: %w", processID, err)
	}
	return &result, nil
}

// Update overwrites an existing task result and refreshes its TTL
func (s *RedisTaskStore) Update(ctx context.Context, result *TaskResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}

	ok, err := s.client.SetXX(ctx, taskKey(result.ProcessID), data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task result
func (s *RedisTaskStore) Delete(ctx context.Context, processID string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, taskKey(processID))
		pipe.ZRem(ctx, redisIndexKey, processID)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Cleanup removes task results older than maxAge. Keys also expire on their
// own through the TTL; this keeps the index in step.
func (s *RedisTaskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := strconv.FormatInt(time.Now().Add(-maxAge).UnixNano(), 10)

	ids, err := s.client.ZRangeByScore(ctx, redisIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
		members[i] = id
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, redisIndexKey, members...)
		return nil
	})
	if err == nil {
		s.logger.Debug("Removed expired task results", map[string]interface{}{
			"count": len(ids),
		})
	}
	return err
}

// List returns all task results still present, newest first
func (s *RedisTaskStore) List(ctx context.Context) ([]*TaskResult, error) {
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	results := make([]*TaskResult, 0, len(ids))
	var stale []interface{}
	for _, id := range ids {
		result, err := s.Get(ctx, id)
		if errors.Is(err, ErrTaskNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	// entries whose keys already expired through the TTL
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, redisIndexKey, stale...).Err(); err != nil {
			s.logger.Warn("Failed to prune task index", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return results, nil
}

// Ping checks the Redis connection
func (s *RedisTaskStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisTaskStore) Close() error {
	return s.client.Close()
}
