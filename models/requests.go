package models

import "time"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     Role   `json:"role" validate:"omitempty,role"`
}

type UpdateUserRequest struct {
	Name     Optional[string] `json:"name"`
	Email    Optional[string] `json:"email"`
	Role     Optional[Role]   `json:"role"`
	IsActive Optional[bool]   `json:"isActive"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type UserListQuery struct {
	Search string `form:"search"`
	Role   string `form:"role"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

type CreateProgramRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Icon        string `json:"icon" validate:"max=50"`
	Schedule    string `json:"schedule" validate:"max=255"`
	Order       int    `json:"order" validate:"gte=0"`
}

type UpdateProgramRequest struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	Color       Optional[string] `json:"color"`
	Icon        Optional[string] `json:"icon"`
	Schedule    Optional[string] `json:"schedule"`
	Order       Optional[int]    `json:"order"`
	IsActive    Optional[bool]   `json:"isActive"`
}

type CreateFolderRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=255,folder_name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parentId" validate:"omitempty,uuid"`
	ProgramID   *string `json:"programId" validate:"omitempty,uuid"`
	Color       string  `json:"color" validate:"omitempty,hexcolor"`
	Icon        string  `json:"icon" validate:"max=50"`
	IsPublic    bool    `json:"isPublic"`
}

type UpdateFolderRequest struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	ParentID    Optional[string] `json:"parentId"`
	ProgramID   Optional[string] `json:"programId"`
	Color       Optional[string] `json:"color"`
	Icon        Optional[string] `json:"icon"`
	IsPublic    Optional[bool]   `json:"isPublic"`
}

type FolderListQuery struct {
	ParentID string `form:"parentId"`
	Search   string `form:"search"`
}

type FileListQuery struct {
	FolderID  string `form:"folderId"`
	ProgramID string `form:"programId"`
	Search    string `form:"search"`
	Type      string `form:"type"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

type UpdateFileRequest struct {
	OriginalName Optional[string]   `json:"originalName"`
	FolderID     Optional[string]   `json:"folderId"`
	ProgramID    Optional[string]   `json:"programId"`
	IsPublic     Optional[bool]     `json:"isPublic"`
	Tags         Optional[[]string] `json:"tags"`
}

type CreateTagRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Category    string `json:"category" validate:"max=50"`
	Description string `json:"description"`
}

type CreateCommentRequest struct {
	Text     string  `json:"text" validate:"required,max=5000"`
	ParentID *string `json:"parentId" validate:"omitempty,uuid"`
}

type UpdateCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type GrantPermissionRequest struct {
	UserID       string          `json:"userId" validate:"required,uuid"`
	ResourceType ResourceType    `json:"resourceType" validate:"required,oneof=folder file"`
	ResourceID   string          `json:"resourceId" validate:"required,uuid"`
	Permission   PermissionLevel `json:"permission" validate:"required,oneof=view edit delete share admin"`
	ExpiresAt    *time.Time      `json:"expiresAt"`
}
