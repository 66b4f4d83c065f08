package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFlashStore keeps flashes in a per-principal list so they survive
// across API replicas.
type RedisFlashStore struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisFlashStore(rdb redis.Cmdable, ttl time.Duration) *RedisFlashStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &RedisFlashStore{
		rdb:    rdb,
		ttl:    ttl,
		prefix: "changepassword:flashes:",
	}
}

func (s *RedisFlashStore) Push(ctx context.Context, key string, f Flash) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode flash: %w", err)
	}

	k := s.prefix + key

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, b)
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push flash: %w", err)
	}
	return nil
}

func (s *RedisFlashStore) Pop(ctx context.Context, key string) ([]Flash, error) {
	k := s.prefix + key

	var rng *redis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rng = pipe.LRange(ctx, k, 0, -1)
		pipe.Del(ctx, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pop flashes: %w", err)
	}

	raw := rng.Val()
	out := make([]Flash, 0, len(raw))
	for _, item := range raw {
		var f Flash
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
