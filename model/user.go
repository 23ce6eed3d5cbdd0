package model

import "time"

// Role is the coarse permission level of an account.
type Role string

const (
	RoleUser   Role = "USER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the marketplace.
type User struct {
	Base
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Username     string    `json:"username" gorm:"size:60;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Not exposed in API responses
	Role         Role      `json:"role" gorm:"size:16;index;not null"`
	AvatarURL    *string   `json:"avatarUrl" gorm:"size:512"`
	IsBlocked    bool      `json:"isBlocked" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// UserSummary is the public projection embedded in other responses.
type UserSummary struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Role      Role    `json:"role,omitempty"`
}

// Summary 生成对外展示的用户信息
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, AvatarURL: u.AvatarURL, Role: u.Role}
}
