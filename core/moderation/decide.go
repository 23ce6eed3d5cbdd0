package moderation

import (
	"context"
	"fmt"

	"Soundbay/apperr"
	"Soundbay/core/activity"
	"Soundbay/logger"
	"Soundbay/model"
	"Soundbay/repository"
)

// Decide 审核一条曲目请求。加锁读取、修改曲目、条件更新请求状态都在同一事务内，
// 同一请求只能被决定一次
func (e *Engine) Decide(ctx context.Context, requestID, moderatorID string, decision model.Decision, note *string) (*model.ModerationRequest, error) {
	if !decision.Valid() {
		return nil, apperr.Validation("decision must be one of: approve reject")
	}

	var (
		req   *model.ModerationRequest
		track *model.Track
	)
	err := e.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		req, err = tx.Moderation.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("Moderation request not found")
		}
		if req.Status != model.ModerationPending {
			return apperr.Conflict("Moderation request already decided")
		}
		if req.TrackID == nil {
			return apperr.Validation("Moderation request has no track")
		}
		track, err = tx.Tracks.GetByIDForUpdate(ctx, *req.TrackID)
		if err != nil {
			return err
		}
		if track == nil {
			return apperr.Validation("Track not found")
		}

		cols, err := e.trackColumns(ctx, tx, req, decision)
		if err != nil {
			return err
		}
		if len(cols) > 0 {
			if err := tx.Tracks.Updates(ctx, track.ID, cols); err != nil {
				return err
			}
		}

		rows, err := tx.Moderation.MarkDecided(ctx, req.ID, decision.Status(), moderatorID, note)
		if err != nil {
			return err
		}
		if rows != 1 {
			return apperr.Conflict("Moderation request already decided")
		}

		req, err = tx.Moderation.GetByID(ctx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.afterDecide(ctx, req, track, moderatorID, decision, note)
	return req, nil
}

// trackColumns 计算决定对曲目产生的修改
func (e *Engine) trackColumns(ctx context.Context, tx *repository.Store, req *model.ModerationRequest, decision model.Decision) (map[string]interface{}, error) {
	payload := req.Payload.Data()
	if !payload.Matches(req.Type) {
		return nil, apperr.Validation("Moderation payload does not match request type")
	}

	if decision == model.DecisionReject {
		if req.Type == model.ModerationTrackCreate {
			return map[string]interface{}{"status": model.TrackStatusRejected}, nil
		}
		return nil, nil
	}

	now := e.now()
	switch req.Type {
	case model.ModerationTrackCreate:
		return map[string]interface{}{"status": model.TrackStatusApproved, "published_at": now}, nil
	case model.ModerationTrackUpdate:
		if payload.Update.GenreID != nil {
			if err := ensureGenre(ctx, tx, *payload.Update.GenreID); err != nil {
				return nil, err
			}
		}
		cols := payload.Update.Columns()
		cols["status"] = model.TrackStatusApproved
		cols["published_at"] = now
		return cols, nil
	case model.ModerationTrackDelete:
		return map[string]interface{}{"status": model.TrackStatusArchived}, nil
	}
	return nil, apperr.Validation("unknown moderation request type")
}

func (e *Engine) afterDecide(ctx context.Context, req *model.ModerationRequest, track *model.Track, moderatorID string, decision model.Decision, note *string) {
	e.invalidate(ctx)

	message := "Ваш запрос на модерацию трека одобрен"
	action := activity.ActionApproveTrackModeration
	if decision == model.DecisionReject {
		message = "Ваш запрос на модерацию трека отклонён"
		action = activity.ActionRejectTrackModeration
	}
	meta := model.NotificationMetadata{
		TargetPath:          sellerPath,
		TrackID:             track.ID,
		ModerationRequestID: req.ID,
		Extra:               map[string]any{"type": string(req.Type), "title": track.Title},
	}
	if note != nil {
		meta.Note = *note
	}
	if _, err := e.notifier.NotifyUser(ctx, req.SellerID, message, meta); err != nil {
		logger.Warn("failed to notify seller about decision",
			logger.String("request", req.ID), logger.ErrorField(err))
	}

	e.activity.Record(ctx, activity.Entry{
		Action:     action,
		EntityType: activity.EntityModerationRequest,
		EntityID:   req.ID,
		UserID:     moderatorID,
		Details:    map[string]interface{}{"trackId": track.ID, "type": string(req.Type)},
	})
}

// DecideReview 审核一条评论，与 Decide 一样只能决定一次
func (e *Engine) DecideReview(ctx context.Context, reviewID, moderatorID string, decision model.Decision, note *string) (*model.Review, error) {
	if !decision.Valid() {
		return nil, apperr.Validation("decision must be one of: approve reject")
	}

	err := e.store.Transaction(ctx, func(tx *repository.Store) error {
		review, err := tx.Reviews.GetForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if review == nil {
			return apperr.NotFound("Review not found")
		}
		if review.Status != model.ModerationPending {
			return apperr.Conflict("Review already moderated")
		}
		rows, err := tx.Reviews.MarkDecided(ctx, review.ID, decision.Status(), moderatorID, note)
		if err != nil {
			return err
		}
		if rows != 1 {
			return apperr.Conflict("Review already moderated")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	review, err := e.store.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, apperr.NotFound("Review not found")
	}
	e.afterReviewDecision(ctx, review, moderatorID, decision, note)
	return review, nil
}

func (e *Engine) afterReviewDecision(ctx context.Context, review *model.Review, moderatorID string, decision model.Decision, note *string) {
	title := ""
	if review.Track != nil {
		title = review.Track.Title
	}
	trackPath := "/tracks/" + review.TrackID
	meta := model.NotificationMetadata{
		TargetPath: trackPath,
		TrackID:    review.TrackID,
		ReviewID:   review.ID,
	}
	if note != nil {
		meta.Note = *note
	}

	action := activity.ActionApproveReview
	if decision == model.DecisionApprove {
		e.invalidate(ctx)
		e.notify(ctx, review.UserID, fmt.Sprintf("Ваш отзыв к треку «%s» одобрен", title), meta)
		if review.Track != nil {
			sellerMeta := meta
			sellerMeta.TargetPath = sellerPath
			sellerMeta.Note = ""
			e.notify(ctx, review.Track.SellerID, fmt.Sprintf("Новый одобренный отзыв к треку «%s»", title), sellerMeta)
		}
	} else {
		action = activity.ActionRejectReview
		e.notify(ctx, review.UserID, "Ваш отзыв отклонён модератором", meta)
	}

	e.activity.Record(ctx, activity.Entry{
		Action:     action,
		EntityType: activity.EntityReview,
		EntityID:   review.ID,
		UserID:     moderatorID,
		Details:    map[string]interface{}{"trackId": review.TrackID},
	})
}

func (e *Engine) notify(ctx context.Context, userID, message string, meta model.NotificationMetadata) {
	if _, err := e.notifier.NotifyUser(ctx, userID, message, meta); err != nil {
		logger.Warn("failed to send notification", logger.String("user", userID), logger.ErrorField(err))
	}
}
