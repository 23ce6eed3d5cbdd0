// Package activity appends audit entries. Recording never fails the caller.
package activity

import (
	"context"

	"Soundbay/logger"
	"Soundbay/model"
	"Soundbay/repository"

	"gorm.io/datatypes"
)

// 实体类型
const (
	EntityUser              = "User"
	EntityTrack             = "Track"
	EntityModerationRequest = "TrackModerationRequest"
	EntityReview            = "TrackReview"
	EntityOrder             = "Order"
	EntityGenre             = "Genre"
)

// 操作类型
const (
	ActionRegister               = "REGISTER"
	ActionLogin                  = "LOGIN"
	ActionLogout                 = "LOGOUT"
	ActionUpdateProfile          = "UPDATE_PROFILE"
	ActionUpdatePassword         = "UPDATE_PASSWORD"
	ActionAddToCart              = "ADD_TO_CART"
	ActionCheckout               = "CHECKOUT"
	ActionCreateReview           = "CREATE_REVIEW"
	ActionSellerCreateTrack      = "SELLER_CREATE_TRACK"
	ActionSellerUpdateTrack      = "SELLER_UPDATE_TRACK_REQUEST"
	ActionSellerDeleteTrack      = "SELLER_DELETE_TRACK_REQUEST"
	ActionApproveTrackModeration = "ADMIN_APPROVE_TRACK_MODERATION"
	ActionRejectTrackModeration  = "ADMIN_REJECT_TRACK_MODERATION"
	ActionApproveReview          = "ADMIN_APPROVE_REVIEW"
	ActionRejectReview           = "ADMIN_REJECT_REVIEW"
	ActionBlockUser              = "ADMIN_BLOCK_USER"
	ActionUnblockUser            = "ADMIN_UNBLOCK_USER"
	ActionCreateGenre            = "ADMIN_CREATE_GENRE"
	ActionUpdateGenre            = "ADMIN_UPDATE_GENRE"
	ActionDeleteGenre            = "ADMIN_DELETE_GENRE"
)

// Sink is what services depend on to record activity.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// Entry 一条待写入的操作记录
type Entry struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     string
	Details    map[string]interface{}
}

// Recorder writes activity entries.
type Recorder struct {
	repo repository.ActivityRepository
}

// NewRecorder 创建记录器
func NewRecorder(repo repository.ActivityRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record 写入失败只记录日志
func (r *Recorder) Record(ctx context.Context, e Entry) {
	row := &model.ActivityLog{
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   optional(e.EntityID),
		UserID:     optional(e.UserID),
	}
	if len(e.Details) > 0 {
		row.Details = datatypes.JSONMap(e.Details)
	}
	if err := r.repo.Create(ctx, row); err != nil {
		logger.Warn("failed to record activity",
			logger.String("action", e.Action),
			logger.String("entityId", e.EntityID),
			logger.ErrorField(err))
	}
}

// Recent 最新的操作记录
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*model.ActivityLog, error) {
	return r.repo.Recent(ctx, limit)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
