package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks liveness with a per-user TTL key. The page-lifecycle
// online/offline flag in Mongo is best-effort; the heartbeat key is what
// reads should trust.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

// Heartbeat marks the user alive for one TTL window.
func (s *Store) Heartbeat(ctx context.Context, userID string) error {
	return s.client.Set(ctx, s.key(userID), time.Now().Unix(), s.ttl).Err()
}

// SetOffline drops the liveness key immediately (explicit sign-out).
func (s *Store) SetOffline(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

// Online reports whether a heartbeat is still live.
func (s *Store) Online(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
