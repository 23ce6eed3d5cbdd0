package checkout

import (
	"context"

	"Soundbay/apperr"
	"Soundbay/core/activity"

	"github.com/shopspring/decimal"
)

// CartItem 购物车条目，价格为曲目当前价格
type CartItem struct {
	ID         string          `json:"id"`
	TrackID    string          `json:"trackId"`
	Title      string          `json:"title"`
	AuthorName string          `json:"authorName"`
	Price      decimal.Decimal `json:"price"`
	CoverURL   *string         `json:"coverUrl"`
}

// Cart 购物车视图
type Cart struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// List 返回购物车内容和按当前价格计算的合计
func (s *Service) List(ctx context.Context, userID string) (*Cart, error) {
	rows, err := s.store.Carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart := &Cart{Items: make([]CartItem, 0, len(rows)), Total: decimal.Zero}
	for _, r := range rows {
		if r.Track == nil {
			continue
		}
		cart.Items = append(cart.Items, CartItem{
			ID:         r.ID,
			TrackID:    r.TrackID,
			Title:      r.Track.Title,
			AuthorName: r.Track.AuthorName,
			Price:      r.Track.Price,
			CoverURL:   r.Track.CoverURL,
		})
		cart.Total = cart.Total.Add(r.Track.Price)
	}
	return cart, nil
}

// Add 只能添加已上架曲目，重复添加无副作用
func (s *Service) Add(ctx context.Context, userID, trackID string) error {
	track, err := s.store.Tracks.GetApproved(ctx, trackID)
	if err != nil {
		return err
	}
	if track == nil {
		return apperr.NotFound("Track not found")
	}
	if err := s.store.Carts.Add(ctx, userID, track.ID); err != nil {
		return err
	}
	s.activity.Record(ctx, activity.Entry{
		Action:     activity.ActionAddToCart,
		EntityType: activity.EntityTrack,
		EntityID:   track.ID,
		UserID:     userID,
	})
	return nil
}

// Remove 幂等删除
func (s *Service) Remove(ctx context.Context, userID, trackID string) error {
	return s.store.Carts.Remove(ctx, userID, trackID)
}
