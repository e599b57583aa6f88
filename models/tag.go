package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultTagColor = "#6B7280"

type Tag struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"type:varchar(60);uniqueIndex;not null" json:"slug"`
	Color       string    `gorm:"type:varchar(7);not null" json:"color"`
	Category    string    `gorm:"type:varchar(50)" json:"category,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	UsageCount  int64     `gorm:"not null;default:0" json:"usageCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Color == "" {
		t.Color = DefaultTagColor
	}
	return nil
}
