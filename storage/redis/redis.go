// Package redisstore holds the Redis backed stores.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/marksheet/core"
)

// NewClient connects to redis with short timeouts.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// RateLimiterStore counts attempts per identifier in fixed windows shared by every API instance.
// It satisfies echo's middleware.RateLimiterStore.
type RateLimiterStore struct {
	client *redis.Client
	logger core.Logger
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRateLimiterStore(client *redis.Client, logger core.Logger, prefix string, limit int, window time.Duration) *RateLimiterStore {
	return &RateLimiterStore{
		client: client,
		logger: logger,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

// Allow fails open: attempts are allowed while redis is unreachable.
func (s *RateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	slot := s.now().UnixNano() / int64(s.window)
	key := fmt.Sprintf("%s:%s:%d", s.prefix, identifier, slot)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, s.window)
		return nil
	})
	if err != nil {
		s.logger.Warn("rate limiter store unavailable", errors.Wrap(err, "counting attempt"))
		return true, nil
	}
	return incr.Val() <= s.limit, nil
}
