package state

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/redis"
)

// redisClient is the subset of pkg/redis used for session values.
type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StateKey(sessionID, name string) string
}

type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisStore(client redisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string, key enums.StateKey) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.client.StateKey(sessionID, key.String()))
	if redis.IsNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read session state")
	}
	return []byte(raw), true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID string, key enums.StateKey, value []byte) error {
	if err := s.client.Set(ctx, s.client.StateKey(sessionID, key.String()), string(value), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write session state")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string, keys ...enums.StateKey) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, s.client.StateKey(sessionID, key.String()))
	}
	if err := s.client.Del(ctx, names...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete session state")
	}
	return nil
}
