package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultFolderColor = "#3B82F6"
	DefaultFolderIcon  = "folder"
)

type Folder struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ParentID    *string   `gorm:"type:varchar(36);index" json:"parentId"`
	ProgramID   *string   `gorm:"type:varchar(36);index" json:"programId"`
	Color       string    `gorm:"type:varchar(7);not null" json:"color"`
	Icon        string    `gorm:"type:varchar(50);not null" json:"icon"`
	Path        string    `gorm:"type:text" json:"path"`
	OwnerID     string    `gorm:"type:varchar(36);not null;index" json:"ownerId"`
	IsPublic    bool      `gorm:"not null;default:false" json:"isPublic"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Owner      *User    `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"owner,omitempty"`
	Program    *Program `gorm:"foreignKey:ProgramID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"program,omitempty"`
	Subfolders []Folder `gorm:"foreignKey:ParentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"subfolders,omitempty"`
	Files      []File   `gorm:"foreignKey:FolderID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"files,omitempty"`
}

func (Folder) TableName() string {
	return "folders"
}

func (f *Folder) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Color == "" {
		f.Color = DefaultFolderColor
	}
	if f.Icon == "" {
		f.Icon = DefaultFolderIcon
	}
	return nil
}

// ResourceOwnerID returns the id of the user that owns the folder
func (f *Folder) ResourceOwnerID() string {
	return f.OwnerID
}
