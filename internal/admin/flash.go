package admin

import (
	"context"
	"time"

	"github.com/geocoder89/changepassword/internal/cache"
)

const (
	FlashError = "error"
	FlashInfo  = "info"
)

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// FlashStore queues one-shot messages for a principal until the next
// response that renders them.
type FlashStore interface {
	Push(ctx context.Context, key string, f Flash) error
	Pop(ctx context.Context, key string) ([]Flash, error)
}

type MemoryFlashStore struct {
	c *cache.Cache[[]Flash]
}

func NewMemoryFlashStore(ttl time.Duration) *MemoryFlashStore {
	return &MemoryFlashStore{c: cache.New[[]Flash](ttl)}
}

func (s *MemoryFlashStore) Push(_ context.Context, key string, f Flash) error {
	s.c.Update(key, func(cur []Flash) []Flash {
		return append(cur, f)
	})
	return nil
}

func (s *MemoryFlashStore) Pop(_ context.Context, key string) ([]Flash, error) {
	flashes, _ := s.c.Take(key)
	return flashes, nil
}
