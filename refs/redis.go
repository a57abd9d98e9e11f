package refs

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNilClient = errors.New("refs: nil redis client")

// Redis hands out tokens from a shared INCR counter, unique across every
// process using the same key.
// Optionally, a TTL is refreshed on each increment to bound the key's life.
// If the counter key expires it restarts at 1; tokens of live groups then
// risk being reissued, so the TTL must outlive every cached group.
type Redis struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration // 0 disables expiry
}

var _ Source = (*Redis)(nil)

// NewRedis creates a counter under "ref:<namespace>".
func NewRedis(client redis.UniversalClient, namespace string) (*Redis, error) {
	return NewRedisWithTTL(client, namespace, 0)
}

// NewRedisWithTTL is NewRedis with a TTL on the counter key. ttl <= 0 disables expiry.
func NewRedisWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: client, key: "ref:" + namespace, ttl: ttl}, nil
}

// Next atomically increments the counter.
// When ttl > 0, INCR + EXPIRE are pipelined in a single round-trip.
func (s *Redis) Next(ctx context.Context) (uint64, error) {
	if s.ttl <= 0 {
		v, err := s.rdb.Incr(ctx, s.key).Result()
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}

	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, s.key)
		p.Expire(ctx, s.key, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}
