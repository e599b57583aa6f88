package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResourceType string

const (
	ResourceFolder  ResourceType = "folder"
	ResourceFile    ResourceType = "file"
	ResourceUser    ResourceType = "user"
	ResourceProgram ResourceType = "program"
	ResourceComment ResourceType = "comment"
)

type PermissionLevel string

const (
	PermissionView   PermissionLevel = "view"
	PermissionEdit   PermissionLevel = "edit"
	PermissionDelete PermissionLevel = "delete"
	PermissionShare  PermissionLevel = "share"
	PermissionAdmin  PermissionLevel = "admin"
)

type Permission struct {
	ID           string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       string          `gorm:"type:varchar(36);not null;index:idx_permission_resource,priority:3" json:"userId"`
	ResourceType ResourceType    `gorm:"type:varchar(20);not null;index:idx_permission_resource,priority:1" json:"resourceType"`
	ResourceID   string          `gorm:"type:varchar(36);not null;index:idx_permission_resource,priority:2" json:"resourceId"`
	Permission   PermissionLevel `gorm:"type:varchar(20);not null" json:"permission"`
	GrantedBy    string          `gorm:"type:varchar(36);not null" json:"grantedBy"`
	ExpiresAt    *time.Time      `gorm:"index" json:"expiresAt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
}

func (Permission) TableName() string {
	return "permissions"
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the grant has passed its expiry at the given instant
func (p *Permission) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}
