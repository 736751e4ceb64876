package models

import (
	"time"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User holds the wallet balance. Balance is a cached projection of the user's
// completed transactions and is only written alongside a Transaction row.
type User struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	DisplayName   string     `gorm:"column:display_name;size:255;not null" json:"display_name"`
	Balance       int64      `gorm:"column:balance;not null;default:0" json:"balance"`
	Status        UserStatus `gorm:"column:status;size:20;not null;default:active" json:"status"`
	Role          UserRole   `gorm:"column:role;size:20;not null;default:user" json:"role"`
	ReferralCode  string     `gorm:"column:referral_code;size:8;not null;uniqueIndex" json:"referral_code"`
	ReferredBy    *string    `gorm:"column:referred_by;size:36;index" json:"referred_by,omitempty"`
	ReferralCount int        `gorm:"column:referral_count;not null;default:0" json:"referral_count"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
