package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "overlay:task:"

// RedisStore keeps one JSON document per task under overlay:task:<id>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore on an already connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

func (s *RedisStore) key(taskID string) string {
	return s.prefix + taskID
}

func (s *RedisStore) Get(ctx context.Context, taskID string) (*Fields, error) {
	raw, err := s.client.Get(ctx, s.key(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get overlay %s: %w", taskID, err)
	}

	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode overlay %s: %w", taskID, err)
	}
	return &f, nil
}

func (s *RedisStore) GetMany(ctx context.Context, taskIDs []string) (map[string]Fields, error) {
	out := make(map[string]Fields, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(taskIDs))
	for i, id := range taskIDs {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget overlays: %w", err)
	}

	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var f Fields
		if err := json.Unmarshal([]byte(str), &f); err != nil {
			continue
		}
		out[taskIDs[i]] = f
	}
	return out, nil
}

func (s *RedisStore) List(ctx context.Context) (map[string]Fields, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan overlays: %w", err)
	}
	return s.GetMany(ctx, ids)
}

func (s *RedisStore) Upsert(ctx context.Context, taskID string, fields Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode overlay %s: %w", taskID, err)
	}
	if err := s.client.Set(ctx, s.key(taskID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set overlay %s: %w", taskID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, taskID string) error {
	if err := s.client.Del(ctx, s.key(taskID)).Err(); err != nil {
		return fmt.Errorf("redis del overlay %s: %w", taskID, err)
	}
	return nil
}
