package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a completed purchase. Total is the sum of its item prices.
type Order struct {
	Base
	UserID    string          `json:"userId" gorm:"size:36;index;not null"`
	Total     decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time       `json:"createdAt" gorm:"index"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	User  *User       `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderItem captures the price at purchase time, decoupled from the track's
// current price.
type OrderItem struct {
	Base
	OrderID string          `json:"orderId" gorm:"size:36;index;not null"`
	TrackID string          `json:"trackId" gorm:"size:36;index;not null"`
	Price   decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`

	Track *Track `json:"-" gorm:"foreignKey:TrackID"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
