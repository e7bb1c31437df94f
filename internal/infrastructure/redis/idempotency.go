package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// IdempotencyStore deduplicates fulfillment submissions with SETNX. Keys
// expire so an abandoned attempt does not block an order id forever; the
// order table's unique id remains the authoritative guard.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewIdempotencyStore(addr, prefix string) *IdempotencyStore {
	return &IdempotencyStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    defaultTTL,
	}
}

// Acquire returns false when the key was already taken.
func (s *IdempotencyStore) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency setnx: %w", err)
	}
	return ok, nil
}

func (s *IdempotencyStore) Close() error {
	return s.client.Close()
}

func (s *IdempotencyStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}
