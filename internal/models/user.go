package models

import (
	"time"

	"learnhub/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:128;not null" json:"name"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Role         string `gorm:"size:20;not null;index" json:"role"` // ADMIN | PARENT | TEACHER | AFFILIATE
	// AffiliatedByID is set once at signup from the attribution cookie and never re-evaluated.
	AffiliatedByID *uint          `gorm:"index" json:"affiliated_by,omitempty"`
	AffiliatedAt   *time.Time     `json:"affiliated_at,omitempty"`
	FCMToken       string         `gorm:"size:512" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool     { return u.Role == domain.RoleAdmin }
func (u *User) IsParent() bool    { return u.Role == domain.RoleParent }
func (u *User) IsAffiliate() bool { return u.Role == domain.RoleAffiliate }
