// Package moderation owns the publishing workflow: sellers submit changes as
// pending requests and admins approve or reject them.
package moderation

import (
	"context"
	"fmt"
	"time"

	"Soundbay/apperr"
	"Soundbay/cache"
	"Soundbay/core/activity"
	"Soundbay/core/notify"
	"Soundbay/logger"
	"Soundbay/model"
	"Soundbay/repository"

	"gorm.io/datatypes"
)

const (
	adminTracksPath = "/admin?tab=tracks"
	sellerPath      = "/seller"
)

// Submission 卖家提交的一次变更
type Submission struct {
	Type     model.ModerationType
	TrackID  string
	SellerID string
	Payload  model.ModerationPayload
}

// Engine 审核引擎
type Engine struct {
	store    *repository.Store
	cache    cache.Invalidator
	notifier notify.Sender
	activity activity.Sink
	now      func() time.Time
}

// NewEngine 创建审核引擎
func NewEngine(store *repository.Store, c cache.Invalidator, notifier notify.Sender, sink activity.Sink) *Engine {
	return &Engine{store: store, cache: c, notifier: notifier, activity: sink, now: time.Now}
}

// Submit 创建一条 PENDING 请求。TRACK_CREATE 要求曲目已存在（见 SubmitCreate）
func (e *Engine) Submit(ctx context.Context, s Submission) (*model.ModerationRequest, error) {
	var (
		req   *model.ModerationRequest
		track *model.Track
	)
	err := e.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		track, err = e.checkSubmission(ctx, tx, s)
		if err != nil {
			return err
		}
		req, err = createRequest(ctx, tx, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.afterSubmit(ctx, req, track)
	return req, nil
}

// SubmitCreate 在一个事务中创建 PENDING 曲目和对应的 TRACK_CREATE 请求
func (e *Engine) SubmitCreate(ctx context.Context, sellerID string, snap model.TrackSnapshot) (*model.Track, *model.ModerationRequest, error) {
	var (
		track *model.Track
		req   *model.ModerationRequest
	)
	err := e.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := ensureGenre(ctx, tx, snap.GenreID); err != nil {
			return err
		}
		track = &model.Track{
			SellerID:    sellerID,
			Title:       snap.Title,
			Description: snap.Description,
			AuthorName:  snap.AuthorName,
			GenreID:     snap.GenreID,
			Price:       snap.Price,
			MediaURL:    snap.MediaURL,
			CoverURL:    snap.CoverURL,
			Status:      model.TrackStatusPending,
		}
		if err := tx.Tracks.Create(ctx, track); err != nil {
			return err
		}
		var err error
		req, err = createRequest(ctx, tx, Submission{
			Type:     model.ModerationTrackCreate,
			TrackID:  track.ID,
			SellerID: sellerID,
			Payload:  model.ModerationPayload{Create: &snap},
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	e.afterSubmit(ctx, req, track)
	return track, req, nil
}

// SubmitUpdate 提交部分字段修改，只有给出的字段会在通过后生效
func (e *Engine) SubmitUpdate(ctx context.Context, sellerID, trackID string, changes model.TrackChanges) (*model.ModerationRequest, error) {
	return e.Submit(ctx, Submission{
		Type:     model.ModerationTrackUpdate,
		TrackID:  trackID,
		SellerID: sellerID,
		Payload:  model.ModerationPayload{Update: &changes},
	})
}

// SubmitDelete 申请下架（归档）曲目
func (e *Engine) SubmitDelete(ctx context.Context, sellerID, trackID string) (*model.ModerationRequest, error) {
	track, err := e.store.Tracks.GetOwnedActive(ctx, trackID, sellerID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, apperr.NotFound("Track not found")
	}
	return e.Submit(ctx, Submission{
		Type:     model.ModerationTrackDelete,
		TrackID:  track.ID,
		SellerID: sellerID,
		Payload:  model.ModerationPayload{Delete: &model.TrackRef{ID: track.ID, Title: track.Title}},
	})
}

func (e *Engine) checkSubmission(ctx context.Context, tx *repository.Store, s Submission) (*model.Track, error) {
	if !s.Payload.Matches(s.Type) {
		return nil, apperr.Validation("Moderation payload does not match request type")
	}
	track, err := tx.Tracks.GetOwnedActive(ctx, s.TrackID, s.SellerID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, apperr.NotFound("Track not found")
	}
	switch s.Type {
	case model.ModerationTrackCreate:
		if track.Status != model.TrackStatusPending {
			return nil, apperr.Conflict("Track is already published")
		}
		if err := ensureGenre(ctx, tx, s.Payload.Create.GenreID); err != nil {
			return nil, err
		}
	case model.ModerationTrackUpdate:
		if s.Payload.Update.IsEmpty() {
			return nil, apperr.Validation("At least one field is required")
		}
		if s.Payload.Update.GenreID != nil {
			if err := ensureGenre(ctx, tx, *s.Payload.Update.GenreID); err != nil {
				return nil, err
			}
		}
	}
	return track, nil
}

// ensureGenre 锁定曲风行直到事务结束，避免曲风在引用写入前被删除
func ensureGenre(ctx context.Context, tx *repository.Store, id string) error {
	genre, err := tx.Genres.GetForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if genre == nil {
		return apperr.NotFound("Genre not found")
	}
	return nil
}

func createRequest(ctx context.Context, tx *repository.Store, s Submission) (*model.ModerationRequest, error) {
	trackID := s.TrackID
	req := &model.ModerationRequest{
		Type:     s.Type,
		Status:   model.ModerationPending,
		TrackID:  &trackID,
		SellerID: s.SellerID,
		Payload:  datatypes.NewJSONType(s.Payload),
	}
	if err := tx.Moderation.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// afterSubmit 提交成功后的通知和日志，失败只记录
func (e *Engine) afterSubmit(ctx context.Context, req *model.ModerationRequest, track *model.Track) {
	var (
		message string
		action  string
	)
	switch req.Type {
	case model.ModerationTrackCreate:
		message = fmt.Sprintf("Новый трек «%s» отправлен на модерацию", track.Title)
		action = activity.ActionSellerCreateTrack
		e.invalidate(ctx)
	case model.ModerationTrackUpdate:
		message = fmt.Sprintf("Изменения трека «%s» ожидают модерации", track.Title)
		action = activity.ActionSellerUpdateTrack
	case model.ModerationTrackDelete:
		message = fmt.Sprintf("Запрос на удаление трека «%s» ожидает модерации", track.Title)
		action = activity.ActionSellerDeleteTrack
	}

	meta := model.NotificationMetadata{
		TargetPath:          adminTracksPath,
		TrackID:             track.ID,
		ModerationRequestID: req.ID,
		Extra:               map[string]any{"title": track.Title},
	}
	if err := e.notifier.NotifyRole(ctx, model.RoleAdmin, message, meta); err != nil {
		logger.Warn("failed to notify admins about moderation request",
			logger.String("request", req.ID), logger.ErrorField(err))
	}
	e.activity.Record(ctx, activity.Entry{
		Action:     action,
		EntityType: activity.EntityTrack,
		EntityID:   track.ID,
		UserID:     req.SellerID,
	})
}

func (e *Engine) invalidate(ctx context.Context) {
	if err := e.cache.Invalidate(ctx); err != nil {
		logger.Warn("failed to invalidate catalog cache", logger.ErrorField(err))
	}
}
