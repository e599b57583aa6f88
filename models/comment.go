package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	FileID    string     `gorm:"type:varchar(36);not null;index" json:"fileId"`
	UserID    string     `gorm:"type:varchar(36);not null;index" json:"userId"`
	Text      string     `gorm:"type:text;not null" json:"text"`
	ParentID  *string    `gorm:"type:varchar(36);index" json:"parentId"`
	IsEdited  bool       `gorm:"not null;default:false" json:"isEdited"`
	EditedAt  *time.Time `json:"editedAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	User    *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
	File    *File     `gorm:"foreignKey:FileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Replies []Comment `gorm:"foreignKey:ParentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"replies,omitempty"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ResourceOwnerID returns the id of the comment author
func (c *Comment) ResourceOwnerID() string {
	return c.UserID
}
