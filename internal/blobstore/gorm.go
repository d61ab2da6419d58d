package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobModel is the GORM model for the blobs table.
type BlobModel struct {
	Key       string    `gorm:"column:key;type:varchar(128);primaryKey"`
	Data      []byte    `gorm:"column:data;type:jsonb;not null"`
	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BlobModel) TableName() string {
	return "blobs"
}

// GormStore stores blobs in PostgreSQL through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, key string) (Blob, error) {
	var model BlobModel
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return Blob{Data: model.Data, Version: model.Version}, nil
}

func (s *GormStore) Set(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	now := time.Now().UTC()
	db := s.db.WithContext(ctx)

	if expectedVersion == 0 {
		model := BlobModel{Key: key, Data: data, Version: 1, CreatedAt: now, UpdatedAt: now}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if result.Error != nil {
			return 0, fmt.Errorf("failed to create blob %q: %w", key, result.Error)
		}
		if result.RowsAffected == 0 {
			return 0, ErrVersionConflict
		}
		return 1, nil
	}

	next := expectedVersion + 1
	result := db.Model(&BlobModel{}).
		Where("key = ? AND version = ?", key, expectedVersion).
		Updates(map[string]interface{}{
			"data":       data,
			"version":    next,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update blob %q: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
