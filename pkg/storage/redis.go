package storage

import (
	"context"

	"github.com/go-redis/redis/v8"

	"moff.io/web3session/pkg/errors"
)

// RedisStore is a Store backed by redis. Useful when the dApp host keeps
// wallet sessions alive across processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to redis and verifies the connection with a ping.
func DialRedis(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "ping to redis")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get session state from redis")
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "set session state to redis")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "delete session state from redis")
	}
	return nil
}

// Close releases the underlying redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
