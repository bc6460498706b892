package store

import (
	"context"
	"errors"
	"fmt"

	"cbtportal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxWriteRetries = 5

// RedisStore keeps the blob in a single Redis string.
type RedisStore struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

func NewRedisStore(client *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		key:    BlobKey,
		log:    log,
	}
}

// Put runs the read-modify-write under WATCH so concurrent publishers cannot
// overwrite each other's entries.
func (s *RedisStore) Put(ctx context.Context, quiz *models.Quiz) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, s.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}

		next, err := merge(current, quiz)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWriteRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			s.log.Debug("stored quiz", zap.String("quiz_id", quiz.ID), zap.Int("attempt", i+1))
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrStorageUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return fmt.Errorf("%w: too many concurrent writers", ErrStorageUnavailable)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Quiz, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return find(data, id)
}
