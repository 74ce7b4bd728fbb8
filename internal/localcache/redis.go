package localcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-sync/internal/logging"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "storefront:"

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a Redis client and verifies connectivity with a ping.
func Connect(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewRedis returns a Store keeping each value under storefront:{ns}:{key}.
// A zero ttl keeps values until deleted.
func NewRedis(client *redis.Client, ttl time.Duration, logger logrus.FieldLogger) Store {
	return &redisStore{client: client, ttl: ttl, logger: logging.OrDiscard(logger)}
}

func redisKey(namespace, key string) string {
	return keyPrefix + namespace + ":" + key
}

func (s *redisStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisKey(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		s.logger.WithError(err).WithField("key", key).Warn("localcache: get")
		return nil, err
	}
	return data, nil
}

func (s *redisStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	if err := s.client.Set(ctx, redisKey(namespace, key), value, s.ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("localcache: set")
		return err
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, redisKey(namespace, k))
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
