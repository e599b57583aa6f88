package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tvcms/models"
	"tvcms/utils"
)

// RootFolder is the parentId sentinel that selects top-level folders
const RootFolder = "root"

type FolderService struct {
	db         *gorm.DB
	activities *ActivityService
	log        *logrus.Logger
}

func NewFolderService(db *gorm.DB, activities *ActivityService, log *logrus.Logger) *FolderService {
	return &FolderService{db: db, activities: activities, log: log}
}

// List returns the folders under parentID (top level when empty or "root"), newest first
func (fs *FolderService) List(ctx context.Context, q models.FolderListQuery) ([]models.Folder, error) {
	query := fs.db.WithContext(ctx).
		Preload("Owner").
		Preload("Subfolders", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		})

	// Handle parent folder filter
	if q.ParentID == "" || q.ParentID == RootFolder {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", q.ParentID)
	}

	// Handle search
	if term := strings.TrimSpace(q.Search); term != "" {
		query = query.Where(utils.LikeClause("name"), utils.ContainsPattern(term))
	}

	folders := []models.Folder{}
	if err := query.Order("created_at DESC").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// GetByID returns a folder with its owner, direct subfolders and files
func (fs *FolderService) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	var folder models.Folder
	err := fs.db.WithContext(ctx).
		Preload("Owner").
		Preload("Program").
		Preload("Subfolders", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		Preload("Files", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Files.Uploader").
		First(&folder, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Folder not found")
		}
		return nil, fmt.Errorf("failed to load folder: %w", err)
	}
	return &folder, nil
}

// Create adds a folder owned by the actor
func (fs *FolderService) Create(ctx context.Context, actor Actor, req *models.CreateFolderRequest) (*models.Folder, error) {
	folder := &models.Folder{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ProgramID:   nonEmpty(req.ProgramID),
		Color:       req.Color,
		Icon:        req.Icon,
		OwnerID:     actor.UserID(),
		IsPublic:    req.IsPublic,
	}

	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parentPath := ""
		if parentID := nonEmpty(req.ParentID); parentID != nil {
			parent, err := findFolder(ctx, tx, *parentID)
			if err != nil {
				if errors.Is(err, utils.ErrNotFound) {
					return utils.NewNotFoundError("Parent folder not found")
				}
				return err
			}
			folder.ParentID = &parent.ID
			parentPath = parent.Path
		}

		if folder.ProgramID != nil {
			if err := ensureProgram(ctx, tx, *folder.ProgramID); err != nil {
				return err
			}
		}

		folder.Path = joinFolderPath(parentPath, folder.Name)
		if err := tx.Create(folder).Error; err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.log.WithFields(logrus.Fields{"folder_id": folder.ID, "user_id": actor.UserID()}).Info("Folder created")
	fs.activities.Record(ctx, actor, models.ActionFolderCreate, models.ResourceFolder, folder.ID, map[string]interface{}{
		"name": folder.Name,
	})
	return folder, nil
}

// Update applies a partial update. Moving a folder under itself or one of
// its descendants is rejected; the materialised path of the folder and its
// subtree is refreshed on rename or move.
func (fs *FolderService) Update(ctx context.Context, actor Actor, id string, req *models.UpdateFolderRequest) (*models.Folder, error) {
	updates := map[string]interface{}{}

	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		folder, err := findFolder(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor.User, folder, "update this folder"); err != nil {
			return err
		}

		name := folder.Name
		parentID := folder.ParentID
		relocate := false

		if req.Name.Set {
			name = strings.TrimSpace(stringOrEmpty(req.Name.Value))
			if err := utils.ValidateVar(name, "required,min=2,max=255,folder_name"); err != nil {
				return utils.NewValidationError("Validation failed", models.FieldError{Field: "name", Message: "name must be 2 to 255 characters without path separators"})
			}
			updates["name"] = name
			relocate = relocate || name != folder.Name
		}

		if req.Description.Set {
			updates["description"] = stringOrEmpty(req.Description.Value)
		}

		if req.ParentID.Set {
			parentID = nonEmpty(req.ParentID.Value)
			if parentID != nil {
				if err := fs.ensureNoCycle(ctx, tx, folder.ID, *parentID); err != nil {
					return err
				}
			}
			updates["parent_id"] = parentID
			relocate = relocate || !sameID(parentID, folder.ParentID)
		}

		if req.ProgramID.Set {
			programID := nonEmpty(req.ProgramID.Value)
			if programID != nil {
				if err := ensureProgram(ctx, tx, *programID); err != nil {
					return err
				}
			}
			updates["program_id"] = programID
		}

		if req.Color.Set {
			color := models.DefaultFolderColor
			if v := stringOrEmpty(req.Color.Value); v != "" {
				if utils.ValidateVar(v, "hexcolor") != nil {
					return utils.NewValidationError("Validation failed", models.FieldError{Field: "color", Message: "color must be a hex color"})
				}
				color = v
			}
			updates["color"] = color
		}

		if req.Icon.Set {
			icon := models.DefaultFolderIcon
			if v := stringOrEmpty(req.Icon.Value); v != "" {
				icon = v
			}
			updates["icon"] = icon
		}

		if req.IsPublic.Set {
			if req.IsPublic.Value == nil {
				return utils.NewValidationError("Validation failed", models.FieldError{Field: "isPublic", Message: "isPublic cannot be null"})
			}
			updates["is_public"] = *req.IsPublic.Value
		}

		if relocate {
			parentPath := ""
			if parentID != nil {
				parent, err := findFolder(ctx, tx, *parentID)
				if err != nil {
					return err
				}
				parentPath = parent.Path
			}
			updates["path"] = joinFolderPath(parentPath, name)
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(folder).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update folder: %w", err)
		}

		if relocate {
			return refreshDescendantPaths(ctx, tx, folder.ID, updates["path"].(string))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		fs.activities.Record(ctx, actor, models.ActionFolderUpdate, models.ResourceFolder, id, updatedFields(updates))
	}
	return fs.GetByID(ctx, id)
}

// Delete removes an empty folder. Folders that still contain subfolders or
// files are rejected without any change.
func (fs *FolderService) Delete(ctx context.Context, actor Actor, id string) error {
	var name string

	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		folder, err := findFolder(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor.User, folder, "delete this folder"); err != nil {
			return err
		}

		var subfolders, files int64
		if err := tx.Model(&models.Folder{}).Where("parent_id = ?", id).Count(&subfolders).Error; err != nil {
			return fmt.Errorf("failed to count subfolders: %w", err)
		}
		if err := tx.Model(&models.File{}).Where("folder_id = ?", id).Count(&files).Error; err != nil {
			return fmt.Errorf("failed to count folder files: %w", err)
		}
		if subfolders > 0 || files > 0 {
			return utils.NewConflictError("cannot delete non-empty folder")
		}

		name = folder.Name
		if err := tx.Delete(folder).Error; err != nil {
			return fmt.Errorf("failed to delete folder: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fs.log.WithFields(logrus.Fields{"folder_id": id, "user_id": actor.UserID()}).Info("Folder deleted")
	fs.activities.Record(ctx, actor, models.ActionFolderDelete, models.ResourceFolder, id, map[string]interface{}{
		"name": name,
	})
	return nil
}

// ensureNoCycle walks the ancestors of the proposed parent and rejects the
// move if the folder itself is among them
func (fs *FolderService) ensureNoCycle(ctx context.Context, tx *gorm.DB, folderID, parentID string) error {
	if folderID == parentID {
		return utils.NewValidationError("A folder cannot be its own parent")
	}

	visited := map[string]struct{}{}
	cursor := &parentID
	for cursor != nil {
		if *cursor == folderID {
			return utils.NewValidationError("A folder cannot be moved into one of its subfolders")
		}
		if _, seen := visited[*cursor]; seen {
			return utils.NewInternalError("folder hierarchy contains a cycle", nil)
		}
		visited[*cursor] = struct{}{}

		ancestor, err := findFolder(ctx, tx, *cursor)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) && *cursor == parentID {
				return utils.NewNotFoundError("Parent folder not found")
			}
			return err
		}
		cursor = ancestor.ParentID
	}
	return nil
}

func refreshDescendantPaths(ctx context.Context, tx *gorm.DB, parentID, parentPath string) error {
	var children []models.Folder
	if err := tx.WithContext(ctx).Where("parent_id = ?", parentID).Find(&children).Error; err != nil {
		return fmt.Errorf("failed to load subfolders: %w", err)
	}

	for _, child := range children {
		path := joinFolderPath(parentPath, child.Name)
		if err := tx.WithContext(ctx).Model(&models.Folder{}).Where("id = ?", child.ID).Update("path", path).Error; err != nil {
			return fmt.Errorf("failed to update subfolder path: %w", err)
		}
		if err := refreshDescendantPaths(ctx, tx, child.ID, path); err != nil {
			return err
		}
	}
	return nil
}

func findFolder(ctx context.Context, db *gorm.DB, id string) (*models.Folder, error) {
	var folder models.Folder
	if err := db.WithContext(ctx).First(&folder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Folder not found")
		}
		return nil, fmt.Errorf("failed to load folder: %w", err)
	}
	return &folder, nil
}

func joinFolderPath(parentPath, name string) string {
	return strings.TrimSuffix(parentPath, "/") + "/" + name
}

// nonEmpty turns a missing or blank id into nil
func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
