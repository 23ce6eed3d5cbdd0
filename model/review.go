package model

import "time"

// Review is a buyer's rating of a track. Only APPROVED reviews are public.
type Review struct {
	Base
	TrackID        string           `json:"trackId" gorm:"size:36;not null;uniqueIndex:idx_review_track_user"`
	UserID         string           `json:"userId" gorm:"size:36;not null;uniqueIndex:idx_review_track_user"`
	Rating         int              `json:"rating" gorm:"not null"`
	Comment        string           `json:"comment" gorm:"size:500;not null"`
	Status         ModerationStatus `json:"status" gorm:"size:16;index;not null"`
	ModerationNote *string          `json:"moderationNote" gorm:"size:400"`
	ModeratedByID  *string          `json:"moderatedById" gorm:"size:36"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`

	User  *User  `json:"-" gorm:"foreignKey:UserID"`
	Track *Track `json:"-" gorm:"foreignKey:TrackID"`
}

// TableName 指定表名
func (Review) TableName() string {
	return "reviews"
}
