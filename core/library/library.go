// Package library exposes what a buyer owns: purchased tracks, past orders
// and playlists built from them.
package library

import (
	"context"
	"strings"
	"time"

	"Soundbay/apperr"
	"Soundbay/model"
	"Soundbay/repository"
	"Soundbay/validate"

	"github.com/shopspring/decimal"
)

// Track 媒体库中的曲目，包含可播放地址
type Track struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	AuthorName string          `json:"authorName"`
	Genre      *model.Genre    `json:"genre,omitempty"`
	Price      decimal.Decimal `json:"price"`
	MediaURL   string          `json:"mediaUrl"`
	CoverURL   *string         `json:"coverUrl"`
}

func toTrack(t *model.Track) *Track {
	if t == nil {
		return nil
	}
	return &Track{
		ID:         t.ID,
		Title:      t.Title,
		AuthorName: t.AuthorName,
		Genre:      t.Genre,
		Price:      t.Price,
		MediaURL:   t.MediaURL,
		CoverURL:   t.CoverURL,
	}
}

// OwnedTrack 一条购买记录
type OwnedTrack struct {
	PurchasedAt time.Time `json:"purchasedAt"`
	OrderID     string    `json:"orderId"`
	Track       *Track    `json:"track"`
}

// OrderLine 订单明细，价格为购买时价格
type OrderLine struct {
	TrackID string          `json:"trackId"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
}

// Order 订单视图
type Order struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Total     decimal.Decimal `json:"total"`
	Items     []OrderLine     `json:"items"`
}

// Playlist 歌单视图
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Tracks    []*Track  `json:"tracks"`
}

// PlaylistInput 创建或重命名歌单
type PlaylistInput struct {
	Name string `json:"name" validate:"min=2,max=80"`
}

// Service 媒体库服务
type Service struct {
	store *repository.Store
}

// NewService 创建媒体库服务
func NewService(store *repository.Store) *Service {
	return &Service{store: store}
}

// Tracks 已购曲目，最近购买的在前。已下架曲目仍然保留
func (s *Service) Tracks(ctx context.Context, userID string) ([]OwnedTrack, error) {
	items, err := s.store.Library.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]OwnedTrack, 0, len(items))
	for _, it := range items {
		out = append(out, OwnedTrack{PurchasedAt: it.PurchasedAt, OrderID: it.SourceOrderID, Track: toTrack(it.Track)})
	}
	return out, nil
}

// Orders 用户的订单
func (s *Service) Orders(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.store.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		view := Order{ID: o.ID, CreatedAt: o.CreatedAt, Total: o.Total, Items: make([]OrderLine, 0, len(o.Items))}
		for _, it := range o.Items {
			line := OrderLine{TrackID: it.TrackID, Price: it.Price}
			if it.Track != nil {
				line.Title = it.Track.Title
			}
			view.Items = append(view.Items, line)
		}
		out = append(out, view)
	}
	return out, nil
}

func toPlaylist(p *model.Playlist) Playlist {
	view := Playlist{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt, Tracks: make([]*Track, 0, len(p.Entries))}
	for _, e := range p.Entries {
		if t := toTrack(e.Track); t != nil {
			view.Tracks = append(view.Tracks, t)
		}
	}
	return view
}

// Playlists 用户的全部歌单
func (s *Service) Playlists(ctx context.Context, userID string) ([]Playlist, error) {
	rows, err := s.store.Playlists.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Playlist, 0, len(rows))
	for _, p := range rows {
		out = append(out, toPlaylist(p))
	}
	return out, nil
}

func (s *Service) playlist(ctx context.Context, userID, id string) (*Playlist, error) {
	p, err := s.store.Playlists.GetOwnedWithTracks(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("Playlist not found")
	}
	view := toPlaylist(p)
	return &view, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*model.Playlist, error) {
	p, err := s.store.Playlists.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("Playlist not found")
	}
	return p, nil
}

// CreatePlaylist 创建空歌单
func (s *Service) CreatePlaylist(ctx context.Context, userID string, in PlaylistInput) (*Playlist, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	p := &model.Playlist{UserID: userID, Name: in.Name}
	if err := s.store.Playlists.Create(ctx, p); err != nil {
		return nil, err
	}
	view := toPlaylist(p)
	return &view, nil
}

// RenamePlaylist 重命名
func (s *Service) RenamePlaylist(ctx context.Context, userID, id string, in PlaylistInput) (*Playlist, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Playlists.Rename(ctx, p.ID, in.Name); err != nil {
		return nil, err
	}
	return s.playlist(ctx, userID, p.ID)
}

// DeletePlaylist 删除歌单
func (s *Service) DeletePlaylist(ctx context.Context, userID, id string) error {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.store.Playlists.Delete(ctx, p.ID, userID)
}

// AddTrack 只能添加媒体库里的曲目，重复添加无副作用
func (s *Service) AddTrack(ctx context.Context, userID, playlistID, trackID string) (*Playlist, error) {
	p, err := s.owned(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	owns, err := s.store.Library.Owns(ctx, userID, trackID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, apperr.Forbidden("Track is not in your media library")
	}
	if err := s.store.Playlists.AddTrack(ctx, p.ID, trackID); err != nil {
		return nil, err
	}
	return s.playlist(ctx, userID, p.ID)
}

// RemoveTrack 从歌单移除曲目
func (s *Service) RemoveTrack(ctx context.Context, userID, playlistID, trackID string) (*Playlist, error) {
	p, err := s.owned(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Playlists.RemoveTrack(ctx, p.ID, trackID, userID); err != nil {
		return nil, err
	}
	return s.playlist(ctx, userID, p.ID)
}
