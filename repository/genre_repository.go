package repository

import (
	"context"
	"fmt"

	"Soundbay/model"

	"gorm.io/gorm"
)

// GenreRepository 曲风数据访问接口
type GenreRepository interface {
	List(ctx context.Context) ([]*model.Genre, error)
	GetByID(ctx context.Context, id string) (*model.Genre, error)
	GetForUpdate(ctx context.Context, id string) (*model.Genre, error)
	Create(ctx context.Context, genre *model.Genre) error
	Rename(ctx context.Context, id, name string) error
	// Delete 仅删除没有任何曲目引用的曲风，返回是否删除
	Delete(ctx context.Context, id string) (bool, error)
	CountTracks(ctx context.Context, id string) (int64, error)
}

type gormGenreRepository struct {
	db *gorm.DB
}

// NewGormGenreRepository 创建 GORM 曲风仓库
func NewGormGenreRepository(db *gorm.DB) GenreRepository {
	return &gormGenreRepository{db: db}
}

func (r *gormGenreRepository) List(ctx context.Context) ([]*model.Genre, error) {
	var genres []*model.Genre
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return genres, nil
}

func (r *gormGenreRepository) GetByID(ctx context.Context, id string) (*model.Genre, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id), id)
}

// GetForUpdate 在事务中锁定曲风行，删除与引用曲风的写入互斥
func (r *gormGenreRepository) GetForUpdate(ctx context.Context, id string) (*model.Genre, error) {
	return r.first(r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id), id)
}

func (r *gormGenreRepository) first(q *gorm.DB, id string) (*model.Genre, error) {
	var genre model.Genre
	err := q.First(&genre).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get genre %s: %w", id, err)
	}
	return &genre, nil
}

func (r *gormGenreRepository) Create(ctx context.Context, genre *model.Genre) error {
	if err := r.db.WithContext(ctx).Create(genre).Error; err != nil {
		return fmt.Errorf("failed to create genre: %w", err)
	}
	return nil
}

func (r *gormGenreRepository) Rename(ctx context.Context, id, name string) error {
	err := r.db.WithContext(ctx).Model(&model.Genre{}).Where("id = ?", id).Update("name", name).Error
	if err != nil {
		return fmt.Errorf("failed to rename genre %s: %w", id, err)
	}
	return nil
}

func (r *gormGenreRepository) Delete(ctx context.Context, id string) (bool, error) {
	linked := r.db.Model(&model.Track{}).Select("1").Where("genre_id = ?", id)
	res := r.db.WithContext(ctx).Where("id = ?", id).Where("NOT EXISTS (?)", linked).Delete(&model.Genre{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete genre %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CountTracks 统计引用该曲风的曲目数，包括已归档的
func (r *gormGenreRepository) CountTracks(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Track{}).Where("genre_id = ?", id).Count(&count).Error
	return count, err
}
