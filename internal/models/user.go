package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole represents the access level of a panel user
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleOperator UserRole = "operator"
)

// User represents an admin-panel login account
type User struct {
	ID       uint     `gorm:"column:id;primaryKey" json:"id"`
	Username string   `gorm:"column:username;uniqueIndex;size:100;not null" json:"username"`
	Password string   `gorm:"column:password;size:255;not null" json:"-"`
	FullName string   `gorm:"column:full_name;size:255" json:"full_name"`
	Email    string   `gorm:"column:email;size:255" json:"email"`
	Phone    string   `gorm:"column:phone;size:50" json:"phone"`
	Role     UserRole `gorm:"column:role;size:20;default:operator" json:"role"`
	IsActive bool     `gorm:"column:is_active;default:true" json:"is_active"`

	// 2FA fields
	TwoFactorEnabled bool   `gorm:"column:two_factor_enabled;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string `gorm:"column:two_factor_secret;size:255" json:"-"`

	LastLogin *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
