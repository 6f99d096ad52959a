package blob

import (
	"context"

	"inviqa/request-basket/config"
	"inviqa/request-basket/log"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func (s *RedisStore) Put(ctx context.Context, body []byte) (string, error) {
	id := NewID()
	if err := s.client.Set(ctx, s.key(id), body, 0).Err(); err != nil {
		return "", errors.Wrap(err, "blob: failed to store body in redis")
	}

	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	body, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "blob: failed to fetch body from redis")
	}

	return body, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return errors.Wrap(err, "blob: failed to delete body from redis")
	}

	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) close() {
	if err := s.client.Close(); err != nil {
		log.Logger.WithError(err).Error("error closing redis client during shutdown")
	}
}
