package session

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the requested session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Store persists serialized session state with a TTL that is refreshed
// on every save, so a session stays alive as long as it is being used.
type Store interface {
	Load(ctx context.Context, kind, id string) ([]byte, error)
	Save(ctx context.Context, kind, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, kind, id string) error
}

// RedisStore keeps session snapshots as JSON strings in Redis.
type RedisStore struct {
	R      *redis.Client
	Prefix string
}

func (s RedisStore) key(kind, id string) string {
	prefix := strings.TrimSpace(s.Prefix)
	if prefix == "" {
		prefix = "pos"
	}
	return prefix + ":" + kind + ":" + id
}

// Load returns the stored snapshot or ErrNotFound when absent.
func (s RedisStore) Load(ctx context.Context, kind, id string) ([]byte, error) {
	if s.R == nil {
		return nil, errors.New("session: redis client not configured")
	}
	data, err := s.R.Get(ctx, s.key(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Save stores the snapshot and refreshes the expiry window.
func (s RedisStore) Save(ctx context.Context, kind, id string, data []byte, ttl time.Duration) error {
	if s.R == nil {
		return errors.New("session: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.R.Set(ctx, s.key(kind, id), data, ttl).Err()
}

// Delete removes the session snapshot.
func (s RedisStore) Delete(ctx context.Context, kind, id string) error {
	if s.R == nil {
		return errors.New("session: redis client not configured")
	}
	return s.R.Del(ctx, s.key(kind, id)).Err()
}
