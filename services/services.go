package services

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tvcms/storage"
	"tvcms/utils"
)

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	DB            *gorm.DB
	Storage       storage.Storage
	Media         MediaProcessor
	JWT           *utils.JWTManager
	ActivityStore ActivityStore
	Files         FileServiceConfig
	Log           *logrus.Logger
}

// Services bundles the domain services built once at startup
type Services struct {
	Activities  *ActivityService
	Auth        *AuthService
	Users       *UserService
	Programs    *ProgramService
	Folders     *FolderService
	Tags        *TagService
	Files       *FileService
	Comments    *CommentService
	Permissions *PermissionService
}

// New wires the services together. A nil ActivityStore falls back to the SQL store.
func New(deps Dependencies) *Services {
	store := deps.ActivityStore
	if store == nil {
		store = NewSQLActivityStore(deps.DB)
	}

	activities := NewActivityService(store, deps.Log)
	tags := NewTagService(deps.DB, deps.Log)

	return &Services{
		Activities:  activities,
		Auth:        NewAuthService(deps.DB, deps.JWT, activities, deps.Log),
		Users:       NewUserService(deps.DB, activities, deps.Log),
		Programs:    NewProgramService(deps.DB, deps.Log),
		Folders:     NewFolderService(deps.DB, activities, deps.Log),
		Tags:        tags,
		Files:       NewFileService(deps.DB, deps.Storage, deps.Media, tags, activities, deps.Files, deps.Log),
		Comments:    NewCommentService(deps.DB, activities, deps.Log),
		Permissions: NewPermissionService(deps.DB, activities, deps.Log),
	}
}
