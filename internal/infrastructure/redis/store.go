package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// NewClients opens one client per URL. Each client is a shard.
func NewClients(urls []string) ([]*redis.Client, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one redis url is required")
	}
	clients := make([]*redis.Client, 0, len(urls))
	for _, u := range urls {
		opts, err := redis.ParseURL(u)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		clients = append(clients, redis.NewClient(opts))
	}
	return clients, nil
}

// Store is the token state store over one or more Redis shards.
// A key always lands on shard xxhash(key) % len(shards), so the shard
// list must not change for the lifetime of a deployment.
type Store struct {
	shards []*redis.Client
}

func NewStore(shards ...*redis.Client) *Store {
	return &Store{shards: shards}
}

func (s *Store) shardFor(key string) *redis.Client {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.shardFor(key).Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.shardFor(key).Set(ctx, key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.shardFor(key).Del(ctx, key).Err()
}

func (s *Store) AddToSet(ctx context.Context, key, member string) error {
	return s.shardFor(key).SAdd(ctx, key, member).Err()
}

func (s *Store) SetContains(ctx context.Context, key, member string) (bool, error) {
	return s.shardFor(key).SIsMember(ctx, key, member).Result()
}

// RemoveFromSet reports whether this call removed member. SREM is atomic,
// so of two concurrent callers at most one sees true.
func (s *Store) RemoveFromSet(ctx context.Context, key, member string) (bool, error) {
	n, err := s.shardFor(key).SRem(ctx, key, member).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Ping(ctx context.Context) error {
	for i, c := range s.shards {
		if err := c.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis shard %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	var errs []error
	for _, c := range s.shards {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
