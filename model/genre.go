package model

import "time"

// Genre groups catalog tracks.
type Genre struct {
	Base
	Name      string    `json:"name" gorm:"size:60;uniqueIndex;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Genre) TableName() string {
	return "genres"
}
