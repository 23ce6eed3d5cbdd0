package repository

import (
	"context"
	"fmt"

	"Soundbay/model"

	"gorm.io/gorm"
)

// ActivityRepository 操作日志，只追加
type ActivityRepository interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
	Recent(ctx context.Context, limit int) ([]*model.ActivityLog, error)
}

type gormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository 创建 GORM 日志仓库
func NewGormActivityRepository(db *gorm.DB) ActivityRepository {
	return &gormActivityRepository{db: db}
}

func (r *gormActivityRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	return r.db.WithContext(ctx).Omit("User").Create(entry).Error
}

func (r *gormActivityRepository) Recent(ctx context.Context, limit int) ([]*model.ActivityLog, error) {
	var logs []*model.ActivityLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, nil
}
