package repository

import (
	"context"
	"fmt"

	"Soundbay/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingStat 已通过评论的评分汇总
type RatingStat struct {
	TrackID string
	Average float64
	Count   int64
}

// ReviewRepository 评论数据访问接口
type ReviewRepository interface {
	Upsert(ctx context.Context, review *model.Review) (*model.Review, error)
	GetByID(ctx context.Context, id string) (*model.Review, error)
	GetForUpdate(ctx context.Context, id string) (*model.Review, error)
	MarkDecided(ctx context.Context, id string, status model.ModerationStatus, moderatorID string, note *string) (int64, error)
	ListPending(ctx context.Context) ([]*model.Review, error)
	ApprovedForTracks(ctx context.Context, trackIDs []string) ([]*model.Review, error)
	RatingStats(ctx context.Context, trackIDs []string) (map[string]RatingStat, error)
}

type gormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository 创建 GORM 评论仓库
func NewGormReviewRepository(db *gorm.DB) ReviewRepository {
	return &gormReviewRepository{db: db}
}

// Upsert 每个用户对每首曲目只有一条评论；重新提交会覆盖内容并重置为待审核
func (r *gormReviewRepository) Upsert(ctx context.Context, review *model.Review) (*model.Review, error) {
	review.Status = model.ModerationPending
	review.ModerationNote = nil
	review.ModeratedByID = nil

	err := r.db.WithContext(ctx).Omit("User", "Track").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "track_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rating", "comment", "status", "moderation_note", "moderated_by_id", "updated_at",
		}),
	}).Create(review).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert review: %w", err)
	}

	// 冲突时生成的ID不会写入，重新读取实际行
	var stored model.Review
	err = r.db.WithContext(ctx).
		Where("track_id = ? AND user_id = ?", review.TrackID, review.UserID).
		First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reload review: %w", err)
	}
	return &stored, nil
}

func (r *gormReviewRepository) GetByID(ctx context.Context, id string) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).Preload("Track").Where("id = ?", id).First(&review).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get review %s: %w", id, err)
	}
	return &review, nil
}

func (r *gormReviewRepository) GetForUpdate(ctx context.Context, id string) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id).First(&review).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock review %s: %w", id, err)
	}
	return &review, nil
}

func (r *gormReviewRepository) MarkDecided(ctx context.Context, id string, status model.ModerationStatus, moderatorID string, note *string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("id = ? AND status = ?", id, model.ModerationPending).
		Updates(map[string]interface{}{
			"status":          status,
			"moderated_by_id": moderatorID,
			"moderation_note": note,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to decide review %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *gormReviewRepository) ListPending(ctx context.Context) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Track").
		Where("status = ?", model.ModerationPending).
		Order("created_at ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reviews: %w", err)
	}
	return reviews, nil
}

// ApprovedForTracks 已通过的评论，最新的在前
func (r *gormReviewRepository) ApprovedForTracks(ctx context.Context, trackIDs []string) ([]*model.Review, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}
	var reviews []*model.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("track_id IN ? AND status = ?", trackIDs, model.ModerationApproved).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list approved reviews: %w", err)
	}
	return reviews, nil
}

func (r *gormReviewRepository) RatingStats(ctx context.Context, trackIDs []string) (map[string]RatingStat, error) {
	stats := make(map[string]RatingStat, len(trackIDs))
	if len(trackIDs) == 0 {
		return stats, nil
	}
	var rows []RatingStat
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Select("track_id, AVG(rating) AS average, COUNT(*) AS count").
		Where("track_id IN ? AND status = ?", trackIDs, model.ModerationApproved).
		Group("track_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	for _, row := range rows {
		stats[row.TrackID] = row
	}
	return stats, nil
}
