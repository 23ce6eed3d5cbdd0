package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate 行锁，SQLite 方言会忽略
var forUpdate = clause.Locking{Strength: "UPDATE"}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Store aggregates every repository over one *gorm.DB handle. A Store built
// inside Transaction shares the transaction.
type Store struct {
	db *gorm.DB

	Users         UserRepository
	Genres        GenreRepository
	Tracks        TrackRepository
	Moderation    ModerationRepository
	Reviews       ReviewRepository
	Orders        OrderRepository
	Library       LibraryRepository
	Carts         CartRepository
	Playlists     PlaylistRepository
	Notifications NotificationRepository
	Activity      ActivityRepository
}

// NewStore 创建仓库集合
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewGormUserRepository(db),
		Genres:        NewGormGenreRepository(db),
		Tracks:        NewGormTrackRepository(db),
		Moderation:    NewGormModerationRepository(db),
		Reviews:       NewGormReviewRepository(db),
		Orders:        NewGormOrderRepository(db),
		Library:       NewGormLibraryRepository(db),
		Carts:         NewGormCartRepository(db),
		Playlists:     NewGormPlaylistRepository(db),
		Notifications: NewGormNotificationRepository(db),
		Activity:      NewGormActivityRepository(db),
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction 在一个数据库事务中执行 fn，fn 返回错误时回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
