// Package catalog serves the public storefront: genres, approved tracks and
// their reviews.
package catalog

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"Soundbay/apperr"
	"Soundbay/core/activity"
	"Soundbay/core/notify"
	"Soundbay/logger"
	"Soundbay/model"
	"Soundbay/repository"
	"Soundbay/validate"

	"github.com/shopspring/decimal"
)

// 排序方式
const (
	SortPriceAsc   = repository.TrackOrderPriceAsc
	SortPriceDesc  = repository.TrackOrderPriceDesc
	SortDateDesc   = repository.TrackOrderDateDesc
	SortRatingDesc = "rating_desc"
)

// ListingCache is the cache the storefront reads through.
type ListingCache interface {
	Key(query any) (string, error)
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}

// TrackQuery 目录查询参数。序列化结果同时作为缓存键，字段顺序固定
type TrackQuery struct {
	Search   string           `json:"search"`
	Genre    string           `json:"genre"`
	Author   string           `json:"author"`
	MinPrice *decimal.Decimal `json:"minPrice" validate:"omitempty,min=0"`
	MaxPrice *decimal.Decimal `json:"maxPrice" validate:"omitempty,min=0"`
	Sort     string           `json:"sort" validate:"oneof=price_asc price_desc date_desc rating_desc"`
}

func (q TrackQuery) normalize() TrackQuery {
	q.Search = strings.TrimSpace(q.Search)
	q.Genre = strings.TrimSpace(q.Genre)
	q.Author = strings.TrimSpace(q.Author)
	if q.Sort == "" {
		q.Sort = SortDateDesc
	}
	return q
}

// GenreRef 曲目里内嵌的曲风
type GenreRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrackSummary 目录列表中的一行
type TrackSummary struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	AuthorName    string          `json:"authorName"`
	Genre         *GenreRef       `json:"genre"`
	Price         decimal.Decimal `json:"price"`
	CoverURL      *string         `json:"coverUrl"`
	CreatedAt     time.Time       `json:"createdAt"`
	AverageRating float64         `json:"averageRating"`
	RatingCount   int64           `json:"ratingCount"`
}

// TrackList 目录列表
type TrackList struct {
	Tracks []TrackSummary `json:"tracks"`
}

// ReviewAuthor is the public part of a reviewer's account.
type ReviewAuthor struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
}

// PublicReview 已通过审核的评论
type PublicReview struct {
	ID        string        `json:"id"`
	Rating    int           `json:"rating"`
	Comment   string        `json:"comment"`
	CreatedAt time.Time     `json:"createdAt"`
	User      *ReviewAuthor `json:"user"`
}

// TrackDetail 曲目详情
type TrackDetail struct {
	TrackSummary
	Description string         `json:"description"`
	MediaURL    string         `json:"mediaUrl"`
	PublishedAt *time.Time     `json:"publishedAt"`
	Reviews     []PublicReview `json:"reviews"`
}

// ReviewInput 提交评论
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"min=3,max=500"`
}

// Service 目录服务
type Service struct {
	store    *repository.Store
	cache    ListingCache
	notifier notify.Sender
	activity activity.Sink
}

// NewService 创建目录服务
func NewService(store *repository.Store, c ListingCache, notifier notify.Sender, sink activity.Sink) *Service {
	return &Service{store: store, cache: c, notifier: notifier, activity: sink}
}

// Genres 按名称排序
func (s *Service) Genres(ctx context.Context) ([]*model.Genre, error) {
	return s.store.Genres.List(ctx)
}

// ListTracks 查询已上架曲目，结果按查询条件缓存
func (s *Service) ListTracks(ctx context.Context, query TrackQuery) (*TrackList, error) {
	q := query.normalize()
	if err := validate.Struct(q); err != nil {
		return nil, err
	}

	key, err := s.cache.Key(q)
	if err != nil {
		return nil, err
	}
	var cached TrackList
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn("catalog cache read failed", logger.ErrorField(err))
	}
	if hit {
		return &cached, nil
	}

	orderBy := q.Sort
	if orderBy == SortRatingDesc {
		orderBy = SortDateDesc
	}
	tracks, err := s.store.Tracks.Search(ctx, repository.TrackFilter{
		Search:   q.Search,
		Genre:    q.Genre,
		Author:   q.Author,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		OrderBy:  orderBy,
	})
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Reviews.RatingStats(ctx, trackIDs(tracks))
	if err != nil {
		return nil, err
	}

	list := &TrackList{Tracks: make([]TrackSummary, 0, len(tracks))}
	for _, t := range tracks {
		list.Tracks = append(list.Tracks, summarize(t, stats[t.ID]))
	}
	if q.Sort == SortRatingDesc {
		sort.SliceStable(list.Tracks, func(i, j int) bool {
			a, b := list.Tracks[i], list.Tracks[j]
			if a.AverageRating != b.AverageRating {
				return a.AverageRating > b.AverageRating
			}
			return a.RatingCount > b.RatingCount
		})
	}

	if err := s.cache.Set(ctx, key, list); err != nil {
		logger.Warn("catalog cache write failed", logger.ErrorField(err))
	}
	return list, nil
}

// TrackDetail 只返回已上架曲目
func (s *Service) TrackDetail(ctx context.Context, id string) (*TrackDetail, error) {
	track, err := s.store.Tracks.GetApproved(ctx, id)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, apperr.NotFound("Track not found")
	}
	ids := []string{track.ID}
	stats, err := s.store.Reviews.RatingStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.Reviews.ApprovedForTracks(ctx, ids)
	if err != nil {
		return nil, err
	}

	detail := &TrackDetail{
		TrackSummary: summarize(track, stats[track.ID]),
		Description:  track.Description,
		MediaURL:     track.MediaURL,
		PublishedAt:  track.PublishedAt,
		Reviews:      make([]PublicReview, 0, len(reviews)),
	}
	for _, r := range reviews {
		pr := PublicReview{ID: r.ID, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt}
		if r.User != nil {
			pr.User = &ReviewAuthor{ID: r.User.ID, Username: r.User.Username, AvatarURL: r.User.AvatarURL}
		}
		detail.Reviews = append(detail.Reviews, pr)
	}
	return detail, nil
}

// SubmitReview 新建或覆盖用户的评论，并重新进入审核
func (s *Service) SubmitReview(ctx context.Context, trackID, userID string, in ReviewInput) (*model.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	track, err := s.store.Tracks.GetApproved(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, apperr.NotFound("Track not found")
	}

	review, err := s.store.Reviews.Upsert(ctx, &model.Review{
		TrackID: track.ID,
		UserID:  userID,
		Rating:  in.Rating,
		Comment: in.Comment,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("failed to invalidate catalog cache", logger.ErrorField(err))
	}
	meta := model.NotificationMetadata{
		TargetPath: "/admin?tab=reviews",
		TrackID:    track.ID,
		ReviewID:   review.ID,
	}
	if err := s.notifier.NotifyRole(ctx, model.RoleAdmin, "Новый отзыв к треку «"+track.Title+"» ожидает модерации", meta); err != nil {
		logger.Warn("failed to notify admins about review", logger.String("review", review.ID), logger.ErrorField(err))
	}
	s.activity.Record(ctx, activity.Entry{
		Action:     activity.ActionCreateReview,
		EntityType: activity.EntityReview,
		EntityID:   review.ID,
		UserID:     userID,
		Details:    map[string]interface{}{"trackId": track.ID, "rating": in.Rating},
	})
	return review, nil
}

func trackIDs(tracks []*model.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func summarize(t *model.Track, stat repository.RatingStat) TrackSummary {
	s := TrackSummary{
		ID:            t.ID,
		Title:         t.Title,
		AuthorName:    t.AuthorName,
		Price:         t.Price,
		CoverURL:      t.CoverURL,
		CreatedAt:     t.CreatedAt,
		AverageRating: math.Round(stat.Average*100) / 100,
		RatingCount:   stat.Count,
	}
	if t.Genre != nil {
		s.Genre = &GenreRef{ID: t.Genre.ID, Name: t.Genre.Name}
	}
	return s
}
