package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackStatus is the publication state of a track.
type TrackStatus string

const (
	TrackStatusPending  TrackStatus = "PENDING"
	TrackStatusApproved TrackStatus = "APPROVED"
	TrackStatusRejected TrackStatus = "REJECTED"
	TrackStatusArchived TrackStatus = "ARCHIVED" // soft delete, rows are never removed
)

// Track represents an audio track offered for sale.
type Track struct {
	Base
	SellerID    string          `json:"sellerId" gorm:"size:36;index;not null"`
	Title       string          `json:"title" gorm:"size:120;not null"`
	Description string          `json:"description" gorm:"type:text"`
	AuthorName  string          `json:"authorName" gorm:"size:120;not null"`
	GenreID     string          `json:"genreId" gorm:"size:36;index;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	MediaURL    string          `json:"mediaUrl" gorm:"size:512;not null"` // opaque path, served by the storage layer
	CoverURL    *string         `json:"coverUrl" gorm:"size:512"`
	Status      TrackStatus     `json:"status" gorm:"size:16;index;not null"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	PublishedAt *time.Time      `json:"publishedAt"`

	Genre  *Genre `json:"genre,omitempty" gorm:"foreignKey:GenreID"`
	Seller *User  `json:"-" gorm:"foreignKey:SellerID"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

// Purchasable reports whether the track may be added to a cart or bought.
func (t *Track) Purchasable() bool {
	return t != nil && t.Status == TrackStatusApproved
}
