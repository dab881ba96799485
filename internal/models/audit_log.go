package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records admin and affiliate actions on the affiliate program.
type AuditLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UserID     *uint             `gorm:"index" json:"user_id"`
	Action     string            `gorm:"size:100;not null;index" json:"action"`
	Resource   string            `gorm:"size:100;index" json:"resource"`
	ResourceID string            `gorm:"size:100;index" json:"resource_id"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
