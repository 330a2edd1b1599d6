// Package idempotency provides a redis-backed fast path for skipping
// redelivered order notifications. It is advisory only: entries expire, reads
// can fail, and the payments table's unique constraint on order_id remains
// the authoritative guard.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) key(orderID int64) string {
	return fmt.Sprintf("payment:order:%d", orderID)
}

// Seen reports whether the order was already fully processed. It must not
// mark anything: a failed attempt has to stay retryable.
func (s *Store) Seen(ctx context.Context, orderID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(orderID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records a fully processed order. Called only after the message's fate
// is settled (payment finalized or duplicate confirmed).
func (s *Store) Mark(ctx context.Context, orderID int64) error {
	return s.rdb.Set(ctx, s.key(orderID), "1", s.ttl).Err()
}
