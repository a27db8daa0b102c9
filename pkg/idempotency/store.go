package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers which push-channel messages an agent instance has already
// applied, so redelivered messages do not re-fire catalog events.
type Store struct {
	rdb   *redis.Client
	scope string
	ttl   time.Duration
}

func NewStore(rdb *redis.Client, scope string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, scope: scope, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%s:%d:%d", s.scope, topic, partition, offset)
}

func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}
