package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	Base
	Action     string            `json:"action" gorm:"size:64;index;not null"`
	EntityType string            `json:"entityType" gorm:"size:64;not null"`
	EntityID   *string           `json:"entityId" gorm:"size:36"`
	UserID     *string           `json:"userId" gorm:"size:36;index"`
	Details    datatypes.JSONMap `json:"details"`
	CreatedAt  time.Time         `json:"createdAt" gorm:"index"`

	User *User `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 指定表名
func (ActivityLog) TableName() string {
	return "activity_logs"
}
