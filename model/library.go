package model

import "time"

// LibraryItem is proof of ownership, created only by checkout.
type LibraryItem struct {
	Base
	UserID        string    `json:"userId" gorm:"size:36;not null;uniqueIndex:idx_library_user_track"`
	TrackID       string    `json:"trackId" gorm:"size:36;not null;uniqueIndex:idx_library_user_track"`
	SourceOrderID string    `json:"sourceOrderId" gorm:"size:36;not null"`
	PurchasedAt   time.Time `json:"purchasedAt" gorm:"index"`

	Track *Track `json:"-" gorm:"foreignKey:TrackID"`
}

// TableName 指定表名
func (LibraryItem) TableName() string {
	return "library_items"
}

// CartItem is a pending purchase intent.
type CartItem struct {
	Base
	UserID    string    `json:"userId" gorm:"size:36;not null;uniqueIndex:idx_cart_user_track"`
	TrackID   string    `json:"trackId" gorm:"size:36;not null;uniqueIndex:idx_cart_user_track"`
	CreatedAt time.Time `json:"createdAt"`

	Track *Track `json:"-" gorm:"foreignKey:TrackID"`
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}

// Playlist is a user-owned collection of owned tracks.
type Playlist struct {
	Base
	UserID    string    `json:"userId" gorm:"size:36;index;not null"`
	Name      string    `json:"name" gorm:"size:80;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Entries []PlaylistTrack `json:"-" gorm:"foreignKey:PlaylistID"`
}

// TableName 指定表名
func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistTrack 歌单与曲目的关联
type PlaylistTrack struct {
	Base
	PlaylistID string    `json:"playlistId" gorm:"size:36;not null;uniqueIndex:idx_playlist_track"`
	TrackID    string    `json:"trackId" gorm:"size:36;not null;uniqueIndex:idx_playlist_track"`
	AddedAt    time.Time `json:"addedAt"`

	Track *Track `json:"-" gorm:"foreignKey:TrackID"`
}

// TableName 指定表名
func (PlaylistTrack) TableName() string {
	return "playlist_tracks"
}
