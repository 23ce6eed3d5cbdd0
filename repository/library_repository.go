package repository

import (
	"context"
	"fmt"

	"Soundbay/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LibraryRepository 媒体库数据访问接口
type LibraryRepository interface {
	// AddMany inserts ownership rows, skipping tracks the user already owns.
	AddMany(ctx context.Context, items []model.LibraryItem) error
	ListByUser(ctx context.Context, userID string) ([]*model.LibraryItem, error)
	Owns(ctx context.Context, userID, trackID string) (bool, error)
	Count(ctx context.Context, userID string) (int64, error)
}

type gormLibraryRepository struct {
	db *gorm.DB
}

// NewGormLibraryRepository 创建 GORM 媒体库仓库
func NewGormLibraryRepository(db *gorm.DB) LibraryRepository {
	return &gormLibraryRepository{db: db}
}

func (r *gormLibraryRepository) AddMany(ctx context.Context, items []model.LibraryItem) error {
	if len(items) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Omit("Track").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&items).Error
	if err != nil {
		return fmt.Errorf("failed to add library items: %w", err)
	}
	return nil
}

func (r *gormLibraryRepository) ListByUser(ctx context.Context, userID string) ([]*model.LibraryItem, error) {
	var items []*model.LibraryItem
	err := r.db.WithContext(ctx).
		Preload("Track.Genre").
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	return items, nil
}

func (r *gormLibraryRepository) Owns(ctx context.Context, userID, trackID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LibraryItem{}).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormLibraryRepository) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LibraryItem{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
