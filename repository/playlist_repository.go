package repository

import (
	"context"
	"fmt"
	"time"

	"Soundbay/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaylistRepository 歌单数据访问接口，所有操作都限定在所有者范围内
type PlaylistRepository interface {
	Create(ctx context.Context, playlist *model.Playlist) error
	GetOwned(ctx context.Context, id, userID string) (*model.Playlist, error)
	GetOwnedWithTracks(ctx context.Context, id, userID string) (*model.Playlist, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Playlist, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id, userID string) error
	AddTrack(ctx context.Context, playlistID, trackID string) error
	RemoveTrack(ctx context.Context, playlistID, trackID, userID string) error
}

type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository 创建 GORM 歌单仓库
func NewGormPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

func (r *gormPlaylistRepository) Create(ctx context.Context, playlist *model.Playlist) error {
	if err := r.db.WithContext(ctx).Omit("Entries").Create(playlist).Error; err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

func (r *gormPlaylistRepository) GetOwned(ctx context.Context, id, userID string) (*model.Playlist, error) {
	return r.firstOwned(r.db.WithContext(ctx), id, userID)
}

// GetOwnedWithTracks 同 GetOwned，并按加入顺序带上曲目
func (r *gormPlaylistRepository) GetOwnedWithTracks(ctx context.Context, id, userID string) (*model.Playlist, error) {
	return r.firstOwned(withEntries(r.db.WithContext(ctx)), id, userID)
}

func withEntries(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("added_at ASC") }).
		Preload("Entries.Track.Genre")
}

func (r *gormPlaylistRepository) firstOwned(q *gorm.DB, id, userID string) (*model.Playlist, error) {
	var playlist model.Playlist
	err := q.Where("id = ? AND user_id = ?", id, userID).First(&playlist).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}
	return &playlist, nil
}

// ListByUser 最近更新的歌单在前，包含曲目
func (r *gormPlaylistRepository) ListByUser(ctx context.Context, userID string) ([]*model.Playlist, error) {
	var playlists []*model.Playlist
	err := withEntries(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

func (r *gormPlaylistRepository) Rename(ctx context.Context, id, name string) error {
	return r.db.WithContext(ctx).Model(&model.Playlist{}).Where("id = ?", id).Update("name", name).Error
}

// Delete 删除歌单及其曲目关联；不属于 userID 的歌单不受影响
func (r *gormPlaylistRepository) Delete(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Playlist{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete playlist %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Where("playlist_id = ?", id).Delete(&model.PlaylistTrack{}).Error
	})
}

// AddTrack 幂等添加，并刷新歌单的更新时间
func (r *gormPlaylistRepository) AddTrack(ctx context.Context, playlistID, trackID string) error {
	entry := model.PlaylistTrack{PlaylistID: playlistID, TrackID: trackID, AddedAt: time.Now()}
	err := r.db.WithContext(ctx).Omit("Track").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to add track to playlist: %w", err)
	}
	return r.db.WithContext(ctx).Model(&model.Playlist{}).
		Where("id = ?", playlistID).
		Update("updated_at", time.Now()).Error
}

func (r *gormPlaylistRepository) RemoveTrack(ctx context.Context, playlistID, trackID, userID string) error {
	return r.db.WithContext(ctx).
		Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
		Where("playlist_id IN (?)", r.db.Model(&model.Playlist{}).Select("id").Where("user_id = ?", userID)).
		Delete(&model.PlaylistTrack{}).Error
}
