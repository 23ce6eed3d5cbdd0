package moderation

import (
	"context"
	"time"

	"Soundbay/model"
)

// TrackBrief 审核列表里的曲目摘要
type TrackBrief struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Status   model.TrackStatus `json:"status"`
	SellerID string            `json:"sellerId"`
}

// PendingRequest 待审核请求视图
type PendingRequest struct {
	ID        string                  `json:"id"`
	Type      model.ModerationType    `json:"type"`
	Status    model.ModerationStatus  `json:"status"`
	Payload   model.ModerationPayload `json:"payload"`
	CreatedAt time.Time               `json:"createdAt"`
	Seller    *model.UserSummary      `json:"seller"`
	Track     *TrackBrief             `json:"track"`
}

// PendingReview 待审核评论视图
type PendingReview struct {
	ID        string             `json:"id"`
	Rating    int                `json:"rating"`
	Comment   string             `json:"comment"`
	CreatedAt time.Time          `json:"createdAt"`
	User      *model.UserSummary `json:"user"`
	Track     *TrackBrief        `json:"track"`
}

func brief(t *model.Track) *TrackBrief {
	if t == nil {
		return nil
	}
	return &TrackBrief{ID: t.ID, Title: t.Title, Status: t.Status, SellerID: t.SellerID}
}

// PendingTrackRequests 按提交时间升序返回待审核的曲目请求
func (e *Engine) PendingTrackRequests(ctx context.Context) ([]PendingRequest, error) {
	rows, err := e.store.Moderation.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PendingRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, PendingRequest{
			ID:        r.ID,
			Type:      r.Type,
			Status:    r.Status,
			Payload:   r.Payload.Data(),
			CreatedAt: r.CreatedAt,
			Seller:    r.Seller.Summary(),
			Track:     brief(r.Track),
		})
	}
	return out, nil
}

// PendingReviews 按提交时间升序返回待审核评论
func (e *Engine) PendingReviews(ctx context.Context) ([]PendingReview, error) {
	rows, err := e.store.Reviews.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PendingReview, 0, len(rows))
	for _, r := range rows {
		out = append(out, PendingReview{
			ID:        r.ID,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
			User:      r.User.Summary(),
			Track:     brief(r.Track),
		})
	}
	return out, nil
}
