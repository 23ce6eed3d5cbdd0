package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ModerationType 审核请求类型
type ModerationType string

const (
	ModerationTrackCreate ModerationType = "TRACK_CREATE"
	ModerationTrackUpdate ModerationType = "TRACK_UPDATE"
	ModerationTrackDelete ModerationType = "TRACK_DELETE"
)

// ModerationStatus is shared by moderation requests and reviews.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "PENDING"
	ModerationApproved ModerationStatus = "APPROVED"
	ModerationRejected ModerationStatus = "REJECTED"
)

// TrackSnapshot is the full field set proposed by a TRACK_CREATE request.
type TrackSnapshot struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	AuthorName  string          `json:"authorName"`
	GenreID     string          `json:"genreId"`
	Price       decimal.Decimal `json:"price"`
	MediaURL    string          `json:"mediaUrl"`
	CoverURL    *string         `json:"coverUrl,omitempty"`
}

// TrackChanges is a partial update; nil fields are left as they are.
type TrackChanges struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	AuthorName  *string          `json:"authorName,omitempty"`
	GenreID     *string          `json:"genreId,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	MediaURL    *string          `json:"mediaUrl,omitempty"`
	CoverURL    *string          `json:"coverUrl,omitempty"`
}

// IsEmpty reports whether no field is set.
func (c TrackChanges) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.AuthorName == nil && c.GenreID == nil &&
		c.Price == nil && c.MediaURL == nil && c.CoverURL == nil
}

// Columns 返回需要写入的列，只包含显式给出的字段
func (c TrackChanges) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if c.Title != nil {
		cols["title"] = *c.Title
	}
	if c.Description != nil {
		cols["description"] = *c.Description
	}
	if c.AuthorName != nil {
		cols["author_name"] = *c.AuthorName
	}
	if c.GenreID != nil {
		cols["genre_id"] = *c.GenreID
	}
	if c.Price != nil {
		cols["price"] = *c.Price
	}
	if c.MediaURL != nil {
		cols["media_url"] = *c.MediaURL
	}
	if c.CoverURL != nil {
		cols["cover_url"] = *c.CoverURL
	}
	return cols
}

// TrackRef identifies the track a TRACK_DELETE request archives.
type TrackRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ModerationPayload is a tagged union: exactly the variant matching the
// request type is set.
type ModerationPayload struct {
	Create *TrackSnapshot `json:"create,omitempty"`
	Update *TrackChanges  `json:"update,omitempty"`
	Delete *TrackRef      `json:"delete,omitempty"`
}

// Matches reports whether the payload carries the variant for t and nothing else.
func (p ModerationPayload) Matches(t ModerationType) bool {
	switch t {
	case ModerationTrackCreate:
		return p.Create != nil && p.Update == nil && p.Delete == nil
	case ModerationTrackUpdate:
		return p.Update != nil && p.Create == nil && p.Delete == nil
	case ModerationTrackDelete:
		return p.Delete != nil && p.Create == nil && p.Update == nil
	}
	return false
}

// ModerationRequest 卖家提交的待审核变更
type ModerationRequest struct {
	Base
	Type        ModerationType                        `json:"type" gorm:"size:24;not null"`
	Status      ModerationStatus                      `json:"status" gorm:"size:16;index;not null"`
	TrackID     *string                               `json:"trackId" gorm:"size:36;index"`
	SellerID    string                                `json:"sellerId" gorm:"size:36;index;not null"`
	Payload     datatypes.JSONType[ModerationPayload] `json:"payload"`
	ModeratorID *string                               `json:"moderatorId" gorm:"size:36"`
	Note        *string                               `json:"note" gorm:"size:400"`
	CreatedAt   time.Time                             `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time                             `json:"updatedAt"`

	Track  *Track `json:"track,omitempty" gorm:"foreignKey:TrackID"`
	Seller *User  `json:"-" gorm:"foreignKey:SellerID"`
}

// TableName 指定表名
func (ModerationRequest) TableName() string {
	return "moderation_requests"
}

// Decision is an admin verdict on a pending request or review.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is approve or reject.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Status maps the decision onto the terminal moderation status.
func (d Decision) Status() ModerationStatus {
	if d == DecisionApprove {
		return ModerationApproved
	}
	return ModerationRejected
}
