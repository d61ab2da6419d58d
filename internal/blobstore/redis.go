package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldData    = "data"
	redisFieldVersion = "version"
)

// RedisStore keeps each blob in a hash holding its data and version.
// Writes run inside WATCH/MULTI so a concurrent writer aborts the transaction.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore. Keys are namespaced with prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (Blob, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return Blob{}, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	if len(fields) == 0 {
		return Blob{}, ErrNotFound
	}
	version, err := strconv.ParseInt(fields[redisFieldVersion], 10, 64)
	if err != nil {
		return Blob{}, fmt.Errorf("corrupt version for blob %q: %w", key, err)
	}
	return Blob{Data: []byte(fields[redisFieldData]), Version: version}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	k := s.key(key)
	next := expectedVersion + 1

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, redisFieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expectedVersion {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, redisFieldData, data, redisFieldVersion, next)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, k)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, ErrVersionConflict
	default:
		return 0, fmt.Errorf("failed to write blob %q: %w", key, err)
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
