package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityAction string

const (
	ActionLogin            ActivityAction = "login"
	ActionLogout           ActivityAction = "logout"
	ActionFileUpload       ActivityAction = "file_upload"
	ActionFileDownload     ActivityAction = "file_download"
	ActionFileDelete       ActivityAction = "file_delete"
	ActionFileUpdate       ActivityAction = "file_update"
	ActionFileView         ActivityAction = "file_view"
	ActionFolderCreate     ActivityAction = "folder_create"
	ActionFolderDelete     ActivityAction = "folder_delete"
	ActionFolderUpdate     ActivityAction = "folder_update"
	ActionUserCreate       ActivityAction = "user_create"
	ActionUserUpdate       ActivityAction = "user_update"
	ActionUserDelete       ActivityAction = "user_delete"
	ActionPermissionGrant  ActivityAction = "permission_grant"
	ActionPermissionRevoke ActivityAction = "permission_revoke"
	ActionCommentCreate    ActivityAction = "comment_create"
	ActionCommentDelete    ActivityAction = "comment_delete"
)

// Activity is an append-only audit record; rows are never updated
type Activity struct {
	ID           string                 `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	UserID       *string                `gorm:"type:varchar(36);index" bson:"user_id,omitempty" json:"userId"`
	Action       ActivityAction         `gorm:"type:varchar(40);not null;index" bson:"action" json:"action"`
	ResourceType ResourceType           `gorm:"type:varchar(20);index:idx_activity_resource,priority:1" bson:"resource_type,omitempty" json:"resourceType,omitempty"`
	ResourceID   *string                `gorm:"type:varchar(36);index:idx_activity_resource,priority:2" bson:"resource_id,omitempty" json:"resourceId,omitempty"`
	Details      map[string]interface{} `gorm:"type:text;serializer:json" bson:"details,omitempty" json:"details,omitempty"`
	IPAddress    string                 `gorm:"type:varchar(45)" bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	UserAgent    string                 `gorm:"type:text" bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	CreatedAt    time.Time              `gorm:"index" bson:"created_at" json:"createdAt"`
}

func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ActivityFilter narrows an activity listing
type ActivityFilter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Page         int
	Limit        int
}
