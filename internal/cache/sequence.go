package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Sequence hands out increasing numbers from a redis counter. Concurrent
// callers always receive distinct values, which keeps UID allocation from
// racing on max+1 under load.
type Sequence struct {
	client *redis.Client
	key    string
}

func NewSequence(client *redis.Client, key string) *Sequence {
	return &Sequence{client: client, key: key}
}

func (s *Sequence) Available() bool {
	return s != nil && s.client != nil
}

// Next returns the next value, never less than floor. floor is the smallest
// value the durable store would accept; it reseeds the counter when redis
// was flushed or is behind the database.
func (s *Sequence) Next(ctx context.Context, floor int64) (int64, error) {
	if !s.Available() {
		return 0, ErrCacheNotAvailable
	}

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.key, floor-1, 0)
		incr = pipe.Incr(ctx, s.key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", s.key, err)
	}

	v := incr.Val()
	if v < floor {
		if err := s.client.Set(ctx, s.key, floor, 0).Err(); err != nil {
			return 0, fmt.Errorf("sequence %s reseed: %w", s.key, err)
		}
		v = floor
	}
	return v, nil
}
