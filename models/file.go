package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FileStatus string

const (
	FileStatusUploading  FileStatus = "uploading"
	FileStatusProcessing FileStatus = "processing"
	FileStatusReady      FileStatus = "ready"
	FileStatusFailed     FileStatus = "failed"
	FileStatusArchived   FileStatus = "archived"
)

type File struct {
	ID              string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OriginalName    string         `gorm:"type:varchar(255);not null" json:"originalName"`
	FileName        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"fileName"`
	Size            int64          `gorm:"not null" json:"size"`
	MimeType        string         `gorm:"type:varchar(100);not null;index" json:"mimeType"`
	Extension       string         `gorm:"type:varchar(20)" json:"extension"`
	URL             string         `gorm:"type:varchar(1024);not null" json:"url"`
	ThumbnailURL    *string        `gorm:"type:varchar(1024)" json:"thumbnailUrl"`
	StorageProvider string         `gorm:"type:varchar(20);not null" json:"storageProvider"`
	StorageKey      string         `gorm:"type:varchar(512);not null" json:"-"`
	ThumbnailKey    *string        `gorm:"type:varchar(512)" json:"-"`
	Duration        *int           `json:"duration"`
	Resolution      *string        `gorm:"type:varchar(20)" json:"resolution"`
	Codec           *string        `gorm:"type:varchar(50)" json:"codec"`
	Metadata        datatypes.JSON `json:"metadata"`
	FolderID        *string        `gorm:"type:varchar(36);index" json:"folderId"`
	ProgramID       *string        `gorm:"type:varchar(36);index" json:"programId"`
	UploadedBy      string         `gorm:"type:varchar(36);not null;index" json:"uploadedBy"`
	Status          FileStatus     `gorm:"type:varchar(20);not null;default:uploading" json:"status"`
	Views           int64          `gorm:"not null;default:0" json:"views"`
	Downloads       int64          `gorm:"not null;default:0" json:"downloads"`
	Version         int            `gorm:"not null;default:1" json:"version"`
	IsPublic        bool           `gorm:"not null;default:false" json:"isPublic"`
	CreatedAt       time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Uploader *User    `gorm:"foreignKey:UploadedBy;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"uploader,omitempty"`
	Folder   *Folder  `gorm:"foreignKey:FolderID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"folder,omitempty"`
	Program  *Program `gorm:"foreignKey:ProgramID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"program,omitempty"`
	Tags     []Tag    `gorm:"many2many:file_tags;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"tags"`
}

func (File) TableName() string {
	return "files"
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// ResourceOwnerID returns the id of the user that uploaded the file
func (f *File) ResourceOwnerID() string {
	return f.UploadedBy
}

// MediaInfo is the result of type-dependent enrichment of an upload
type MediaInfo struct {
	Duration      *int
	Resolution    *string
	Codec         *string
	Metadata      map[string]interface{}
	ThumbnailPath string
}
