package seller

import (
	"context"
	"time"

	"Soundbay/model"

	"github.com/shopspring/decimal"
)

// DashboardReview 已通过的评论
type DashboardReview struct {
	ID        string    `json:"id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	Username  string    `json:"username"`
}

// DashboardTrack 单曲统计
type DashboardTrack struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Status        model.TrackStatus `json:"status"`
	Price         decimal.Decimal   `json:"price"`
	SalesCount    int               `json:"salesCount"`
	Revenue       decimal.Decimal   `json:"revenue"`
	AverageRating float64           `json:"averageRating"`
	Reviews       []DashboardReview `json:"reviews"`
}

// Dashboard 卖家统计面板
type Dashboard struct {
	TotalSales   int              `json:"totalSales"`
	TotalRevenue decimal.Decimal  `json:"totalRevenue"`
	Tracks       []DashboardTrack `json:"tracks"`
}

// Dashboard 汇总每首曲目的销量、收入、评分和评论
func (s *Service) Dashboard(ctx context.Context, sellerID string) (*Dashboard, error) {
	tracks, err := s.store.Tracks.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	ids := trackIDs(tracks)
	sold, err := s.salesByTrack(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Reviews.RatingStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.Reviews.ApprovedForTracks(ctx, ids)
	if err != nil {
		return nil, err
	}
	byTrack := make(map[string][]DashboardReview)
	for _, r := range reviews {
		dr := DashboardReview{ID: r.ID, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt}
		if r.User != nil {
			dr.Username = r.User.Username
		}
		byTrack[r.TrackID] = append(byTrack[r.TrackID], dr)
	}

	d := &Dashboard{TotalRevenue: decimal.Zero, Tracks: make([]DashboardTrack, 0, len(tracks))}
	for _, t := range tracks {
		agg := sold[t.ID]
		row := DashboardTrack{
			ID:            t.ID,
			Title:         t.Title,
			Status:        t.Status,
			Price:         t.Price,
			SalesCount:    agg.count,
			Revenue:       agg.revenue,
			AverageRating: stats[t.ID].Average,
			Reviews:       byTrack[t.ID],
		}
		if row.Reviews == nil {
			row.Reviews = []DashboardReview{}
		}
		d.TotalSales += agg.count
		d.TotalRevenue = d.TotalRevenue.Add(agg.revenue)
		d.Tracks = append(d.Tracks, row)
	}
	return d, nil
}
