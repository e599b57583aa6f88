package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultProgramColor = "#3B82F6"
	DefaultProgramIcon  = "tv"
)

type Program struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"type:varchar(7);not null;default:'#3B82F6'" json:"color"`
	Icon        string    `gorm:"type:varchar(50);not null;default:'tv'" json:"icon"`
	Schedule    string    `gorm:"type:varchar(255)" json:"schedule"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	FilesCount   *int64   `gorm:"-" json:"filesCount,omitempty"`
	FoldersCount *int64   `gorm:"-" json:"foldersCount,omitempty"`
	Files        []File   `gorm:"foreignKey:ProgramID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"files,omitempty"`
	Folders      []Folder `gorm:"foreignKey:ProgramID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"folders,omitempty"`
}

func (Program) TableName() string {
	return "programs"
}

func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
