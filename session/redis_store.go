package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 基于 Redis 的会话存储，过期由 Redis 的 TTL 处理
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore 创建 Redis 会话存储，键为 prefix + 会话 ID
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: failed to load %s from redis: %w", id, err)
	}
	return Decode(data)
}

func (s *RedisStore) Save(ctx context.Context, id string, state *State, ttl time.Duration) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+id, data, ttl).Err(); err != nil {
		return fmt.Errorf("session: failed to save %s to redis: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("session: failed to delete %s from redis: %w", id, err)
	}
	return nil
}

// Collect Redis 自行淘汰过期的键
func (s *RedisStore) Collect(context.Context, time.Time) (int, error) {
	return 0, nil
}
