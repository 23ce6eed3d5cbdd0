package repository

import (
	"context"
	"fmt"

	"Soundbay/model"

	"gorm.io/gorm"
)

// ModerationRepository 审核请求数据访问接口
type ModerationRepository interface {
	Create(ctx context.Context, req *model.ModerationRequest) error
	GetByID(ctx context.Context, id string) (*model.ModerationRequest, error)
	GetForUpdate(ctx context.Context, id string) (*model.ModerationRequest, error)
	// MarkDecided flips a PENDING request to status and returns the affected row count.
	MarkDecided(ctx context.Context, id string, status model.ModerationStatus, moderatorID string, note *string) (int64, error)
	ListPending(ctx context.Context) ([]*model.ModerationRequest, error)
	LatestForTracks(ctx context.Context, trackIDs []string) (map[string]*model.ModerationRequest, error)
	ListByTrack(ctx context.Context, trackID string) ([]*model.ModerationRequest, error)
}

type gormModerationRepository struct {
	db *gorm.DB
}

// NewGormModerationRepository 创建 GORM 审核仓库
func NewGormModerationRepository(db *gorm.DB) ModerationRepository {
	return &gormModerationRepository{db: db}
}

func (r *gormModerationRepository) Create(ctx context.Context, req *model.ModerationRequest) error {
	if err := r.db.WithContext(ctx).Omit("Track", "Seller").Create(req).Error; err != nil {
		return fmt.Errorf("failed to create moderation request: %w", err)
	}
	return nil
}

func (r *gormModerationRepository) GetByID(ctx context.Context, id string) (*model.ModerationRequest, error) {
	var req model.ModerationRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get moderation request %s: %w", id, err)
	}
	return &req, nil
}

// GetForUpdate 加行锁读取审核请求
func (r *gormModerationRepository) GetForUpdate(ctx context.Context, id string) (*model.ModerationRequest, error) {
	var req model.ModerationRequest
	err := r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id).First(&req).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock moderation request %s: %w", id, err)
	}
	return &req, nil
}

func (r *gormModerationRepository) MarkDecided(ctx context.Context, id string, status model.ModerationStatus, moderatorID string, note *string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ModerationRequest{}).
		Where("id = ? AND status = ?", id, model.ModerationPending).
		Updates(map[string]interface{}{
			"status":       status,
			"moderator_id": moderatorID,
			"note":         note,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to decide moderation request %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// ListPending 待审核队列，最早提交的在前
func (r *gormModerationRepository) ListPending(ctx context.Context) ([]*model.ModerationRequest, error) {
	var reqs []*model.ModerationRequest
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Preload("Track").
		Where("status = ?", model.ModerationPending).
		Order("created_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending moderation requests: %w", err)
	}
	return reqs, nil
}

// LatestForTracks 每个曲目最近一次的审核请求
func (r *gormModerationRepository) LatestForTracks(ctx context.Context, trackIDs []string) (map[string]*model.ModerationRequest, error) {
	latest := make(map[string]*model.ModerationRequest, len(trackIDs))
	if len(trackIDs) == 0 {
		return latest, nil
	}
	var reqs []*model.ModerationRequest
	err := r.db.WithContext(ctx).
		Where("track_id IN ?", trackIDs).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest moderation requests: %w", err)
	}
	for _, req := range reqs {
		if req.TrackID == nil {
			continue
		}
		if _, ok := latest[*req.TrackID]; !ok {
			latest[*req.TrackID] = req
		}
	}
	return latest, nil
}

func (r *gormModerationRepository) ListByTrack(ctx context.Context, trackID string) ([]*model.ModerationRequest, error) {
	var reqs []*model.ModerationRequest
	err := r.db.WithContext(ctx).Where("track_id = ?", trackID).Order("created_at ASC").Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list moderation requests for track %s: %w", trackID, err)
	}
	return reqs, nil
}
