// Package seller implements the seller console. Every catalog change goes
// through moderation; uploaded files are stored before the request is filed.
package seller

import (
	"context"
	"strings"
	"time"

	"Soundbay/apperr"
	"Soundbay/model"
	"Soundbay/repository"
	"Soundbay/storage"
	"Soundbay/validate"

	"github.com/shopspring/decimal"
)

// Submitter files moderation requests on behalf of a seller.
type Submitter interface {
	SubmitCreate(ctx context.Context, sellerID string, snap model.TrackSnapshot) (*model.Track, *model.ModerationRequest, error)
	SubmitUpdate(ctx context.Context, sellerID, trackID string, changes model.TrackChanges) (*model.ModerationRequest, error)
	SubmitDelete(ctx context.Context, sellerID, trackID string) (*model.ModerationRequest, error)
}

// TrackForm 新建曲目的表单
type TrackForm struct {
	Title       string          `json:"title" validate:"min=2,max=120"`
	Description string          `json:"description" validate:"min=10,max=1500"`
	AuthorName  string          `json:"authorName" validate:"omitempty,min=2,max=120"`
	GenreID     string          `json:"genreId" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"min=0.5,max=9999"`
}

// TrackPatch 修改曲目，未给出的字段保持不变
type TrackPatch struct {
	Title       *string          `json:"title" validate:"omitempty,min=2,max=120"`
	Description *string          `json:"description" validate:"omitempty,min=10,max=1500"`
	AuthorName  *string          `json:"authorName" validate:"omitempty,min=2,max=120"`
	GenreID     *string          `json:"genreId" validate:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,min=0.5,max=9999"`
}

// Submitted 提交审核的结果
type Submitted struct {
	TrackID             string `json:"trackId"`
	ModerationRequestID string `json:"moderationRequestId"`
	Status              string `json:"status"`
}

// Service 卖家服务
type Service struct {
	store     *repository.Store
	submitter Submitter
	files     storage.FileStore
}

// NewService 创建卖家服务
func NewService(store *repository.Store, submitter Submitter, files storage.FileStore) *Service {
	return &Service{store: store, submitter: submitter, files: files}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// CreateTrack 保存文件并提交新曲目审核。作者名默认为卖家用户名
func (s *Service) CreateTrack(ctx context.Context, sellerID string, form TrackForm, media, cover *storage.Upload) (*Submitted, error) {
	form.Title = strings.TrimSpace(form.Title)
	form.Description = strings.TrimSpace(form.Description)
	form.AuthorName = strings.TrimSpace(form.AuthorName)
	if err := validate.Struct(form); err != nil {
		return nil, err
	}
	if media == nil {
		return nil, apperr.Validation("Track media file is required")
	}

	if form.AuthorName == "" {
		seller, err := s.store.Users.GetByID(ctx, sellerID)
		if err != nil {
			return nil, err
		}
		if seller == nil {
			return nil, apperr.NotFound("User not found")
		}
		form.AuthorName = seller.Username
	}

	mediaURL, err := storage.SaveUpload(ctx, s.files, storage.FolderTracks, media)
	if err != nil {
		return nil, err
	}
	coverURL, err := storage.SaveUpload(ctx, s.files, storage.FolderCovers, cover)
	if err != nil {
		return nil, err
	}

	track, req, err := s.submitter.SubmitCreate(ctx, sellerID, model.TrackSnapshot{
		Title:       form.Title,
		Description: form.Description,
		AuthorName:  form.AuthorName,
		GenreID:     form.GenreID,
		Price:       form.Price.Round(2),
		MediaURL:    *mediaURL,
		CoverURL:    coverURL,
	})
	if err != nil {
		return nil, err
	}
	return &Submitted{TrackID: track.ID, ModerationRequestID: req.ID, Status: string(req.Status)}, nil
}

// UpdateTrack 提交修改审核，文件可选
func (s *Service) UpdateTrack(ctx context.Context, sellerID, trackID string, patch TrackPatch, media, cover *storage.Upload) (*Submitted, error) {
	patch.Title = trimPtr(patch.Title)
	patch.Description = trimPtr(patch.Description)
	patch.AuthorName = trimPtr(patch.AuthorName)
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}

	track, err := s.store.Tracks.GetOwnedActive(ctx, trackID, sellerID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, apperr.NotFound("Track not found")
	}

	changes := model.TrackChanges{
		Title:       patch.Title,
		Description: patch.Description,
		AuthorName:  patch.AuthorName,
		GenreID:     patch.GenreID,
	}
	if patch.Price != nil {
		p := patch.Price.Round(2)
		changes.Price = &p
	}
	if changes.IsEmpty() && media == nil && cover == nil {
		return nil, apperr.Validation("At least one field is required")
	}
	if changes.MediaURL, err = storage.SaveUpload(ctx, s.files, storage.FolderTracks, media); err != nil {
		return nil, err
	}
	if changes.CoverURL, err = storage.SaveUpload(ctx, s.files, storage.FolderCovers, cover); err != nil {
		return nil, err
	}

	req, err := s.submitter.SubmitUpdate(ctx, sellerID, track.ID, changes)
	if err != nil {
		return nil, err
	}
	return &Submitted{TrackID: track.ID, ModerationRequestID: req.ID, Status: string(req.Status)}, nil
}

// DeleteTrack 提交下架审核
func (s *Service) DeleteTrack(ctx context.Context, sellerID, trackID string) (*Submitted, error) {
	req, err := s.submitter.SubmitDelete(ctx, sellerID, trackID)
	if err != nil {
		return nil, err
	}
	return &Submitted{TrackID: trackID, ModerationRequestID: req.ID, Status: string(req.Status)}, nil
}

// ModerationBrief 最近一次审核请求
type ModerationBrief struct {
	ID        string                 `json:"id"`
	Type      model.ModerationType   `json:"type"`
	Status    model.ModerationStatus `json:"status"`
	Note      *string                `json:"note"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Track 卖家视角的曲目
type Track struct {
	*model.Track
	SalesCount       int              `json:"salesCount"`
	AverageRating    float64          `json:"averageRating"`
	RatingCount      int64            `json:"ratingCount"`
	LatestModeration *ModerationBrief `json:"latestModeration"`
}

type sales struct {
	count   int
	revenue decimal.Decimal
}

// salesByTrack 在内存中汇总，避免依赖数据库的小数聚合
func (s *Service) salesByTrack(ctx context.Context, sellerID string) (map[string]sales, error) {
	items, err := s.store.Orders.ItemsForSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]sales)
	for _, it := range items {
		agg := out[it.TrackID]
		agg.count++
		agg.revenue = agg.revenue.Add(it.Price)
		out[it.TrackID] = agg
	}
	return out, nil
}

func trackIDs(tracks []*model.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

// Tracks 卖家的全部曲目，包括待审核和已归档的
func (s *Service) Tracks(ctx context.Context, sellerID string) ([]Track, error) {
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
	latest, err := s.store.Moderation.LatestForTracks(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		row := Track{
			Track:         t,
			SalesCount:    sold[t.ID].count,
			AverageRating: stats[t.ID].Average,
			RatingCount:   stats[t.ID].Count,
		}
		if req := latest[t.ID]; req != nil {
			row.LatestModeration = &ModerationBrief{ID: req.ID, Type: req.Type, Status: req.Status, Note: req.Note, CreatedAt: req.CreatedAt}
		}
		out = append(out, row)
	}
	return out, nil
}
