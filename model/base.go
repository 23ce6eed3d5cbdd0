package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// 价格以 JSON number 输出，前端直接按数字处理
	decimal.MarshalJSONWithoutQuotes = true
}

// Base carries the string primary key shared by every table.
type Base struct {
	ID string `json:"id" gorm:"primaryKey;size:36"`
}

// BeforeCreate 在插入前生成 UUID 主键
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every persisted model, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Genre{},
		&Track{},
		&ModerationRequest{},
		&Review{},
		&Order{},
		&OrderItem{},
		&LibraryItem{},
		&CartItem{},
		&Playlist{},
		&PlaylistTrack{},
		&Notification{},
		&ActivityLog{},
	}
}
