package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cbtportal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps the blob in one row of the kv_entries table.
type GormStore struct {
	db  *gorm.DB
	key string
	log *zap.Logger
}

func NewGormStore(db *gorm.DB, log *zap.Logger) *GormStore {
	return &GormStore{
		db:  db,
		key: BlobKey,
		log: log,
	}
}

func (s *GormStore) Put(ctx context.Context, quiz *models.Quiz) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.KVEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("blob_key = ?", s.key).
			Take(&entry).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}

		next, err := merge(entry.Value, quiz)
		if err != nil {
			return err
		}

		row := models.KVEntry{Key: s.key, Value: next, UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "blob_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return err
	}

	s.log.Debug("stored quiz", zap.String("quiz_id", quiz.ID))
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Quiz, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).Where("blob_key = ?", s.key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return find(entry.Value, id)
}
