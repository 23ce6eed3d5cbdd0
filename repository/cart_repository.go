package repository

import (
	"context"
	"fmt"

	"Soundbay/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartLine 结算时读取的购物车行，价格和状态取自曲目当前值
type CartLine struct {
	TrackID string
	Status  model.TrackStatus
	Price   decimal.Decimal
}

// CartRepository 购物车数据访问接口
type CartRepository interface {
	Add(ctx context.Context, userID, trackID string) error
	Remove(ctx context.Context, userID, trackID string) error
	ListByUser(ctx context.Context, userID string) ([]*model.CartItem, error)
	// LockLines reads the user's cart joined with track state under a row lock.
	LockLines(ctx context.Context, userID string) ([]CartLine, error)
	RemoveTracks(ctx context.Context, userID string, trackIDs []string) (int64, error)
}

type gormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository 创建 GORM 购物车仓库
func NewGormCartRepository(db *gorm.DB) CartRepository {
	return &gormCartRepository{db: db}
}

// Add 幂等添加
func (r *gormCartRepository) Add(ctx context.Context, userID, trackID string) error {
	item := model.CartItem{UserID: userID, TrackID: trackID}
	err := r.db.WithContext(ctx).Omit("Track").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (r *gormCartRepository) Remove(ctx context.Context, userID, trackID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Delete(&model.CartItem{}).Error
}

func (r *gormCartRepository) ListByUser(ctx context.Context, userID string) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Track").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	return items, nil
}

func (r *gormCartRepository) LockLines(ctx context.Context, userID string) ([]CartLine, error) {
	var lines []CartLine
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.track_id AS track_id, tracks.status AS status, tracks.price AS price").
		Joins("JOIN tracks ON tracks.id = cart_items.track_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.created_at ASC").
		Clauses(forUpdate).
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return lines, nil
}

func (r *gormCartRepository) RemoveTracks(ctx context.Context, userID string, trackIDs []string) (int64, error) {
	if len(trackIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND track_id IN ?", userID, trackIDs).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to remove cart items: %w", res.Error)
	}
	return res.RowsAffected, nil
}
