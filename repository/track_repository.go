package repository

import (
	"context"
	"fmt"
	"strings"

	"Soundbay/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Track list orderings.
const (
	TrackOrderPriceAsc  = "price_asc"
	TrackOrderPriceDesc = "price_desc"
	TrackOrderDateDesc  = "date_desc"
)

// TrackFilter 目录查询条件，只返回 APPROVED 曲目
type TrackFilter struct {
	Search   string
	Genre    string // id or name fragment
	Author   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	OrderBy  string
}

// TrackRepository 曲目数据访问接口
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id string) (*model.Track, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Track, error)
	GetApproved(ctx context.Context, id string) (*model.Track, error)
	GetOwnedActive(ctx context.Context, id, sellerID string) (*model.Track, error)
	Updates(ctx context.Context, id string, cols map[string]interface{}) error
	Search(ctx context.Context, filter TrackFilter) ([]*model.Track, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*model.Track, error)
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository 创建 GORM 曲目仓库
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	if err := r.db.WithContext(ctx).Omit("Genre", "Seller").Create(track).Error; err != nil {
		return fmt.Errorf("failed to create track: %w", err)
	}
	return nil
}

func (r *gormTrackRepository) first(q *gorm.DB, id string) (*model.Track, error) {
	var track model.Track
	if err := q.First(&track).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get track %s: %w", id, err)
	}
	return &track, nil
}

func (r *gormTrackRepository) GetByID(ctx context.Context, id string) (*model.Track, error) {
	return r.first(r.db.WithContext(ctx).Preload("Genre").Where("id = ?", id), id)
}

// GetByIDForUpdate 加行锁读取，只能在事务中使用
func (r *gormTrackRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.Track, error) {
	return r.first(r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id), id)
}

func (r *gormTrackRepository) GetApproved(ctx context.Context, id string) (*model.Track, error) {
	return r.first(r.db.WithContext(ctx).Preload("Genre").
		Where("id = ? AND status = ?", id, model.TrackStatusApproved), id)
}

// GetOwnedActive 卖家自己的、未归档的曲目
func (r *gormTrackRepository) GetOwnedActive(ctx context.Context, id, sellerID string) (*model.Track, error) {
	return r.first(r.db.WithContext(ctx).
		Where("id = ? AND seller_id = ? AND status <> ?", id, sellerID, model.TrackStatusArchived), id)
}

func (r *gormTrackRepository) Updates(ctx context.Context, id string, cols map[string]interface{}) error {
	err := r.db.WithContext(ctx).Model(&model.Track{}).Where("id = ?", id).Updates(cols).Error
	if err != nil {
		return fmt.Errorf("failed to update track %s: %w", id, err)
	}
	return nil
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// Search 按条件查询已上架曲目
func (r *gormTrackRepository) Search(ctx context.Context, f TrackFilter) ([]*model.Track, error) {
	q := r.db.WithContext(ctx).Preload("Genre").Where("status = ?", model.TrackStatusApproved)

	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", p, p)
	}
	if f.Genre != "" {
		q = q.Where("genre_id IN (?)", r.db.Model(&model.Genre{}).Select("id").
			Where("id = ? OR LOWER(name) LIKE ?", f.Genre, likePattern(f.Genre)))
	}
	if f.Author != "" {
		q = q.Where("LOWER(author_name) LIKE ?", likePattern(f.Author))
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}

	switch f.OrderBy {
	case TrackOrderPriceAsc:
		q = q.Order("price ASC")
	case TrackOrderPriceDesc:
		q = q.Order("price DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var tracks []*model.Track
	if err := q.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	return tracks, nil
}

// ListBySeller 卖家的全部曲目，新建的在前
func (r *gormTrackRepository) ListBySeller(ctx context.Context, sellerID string) ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.db.WithContext(ctx).Preload("Genre").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seller tracks: %w", err)
	}
	return tracks, nil
}
