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

// programDetailFiles bounds the file list embedded in a program detail
const programDetailFiles = 20

type ProgramService struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewProgramService(db *gorm.DB, log *logrus.Logger) *ProgramService {
	return &ProgramService{db: db, log: log}
}

type containerCount struct {
	ProgramID string
	Total     int64
}

// List returns active programs in broadcast order with file and folder counts
func (ps *ProgramService) List(ctx context.Context) ([]models.Program, error) {
	programs := []models.Program{}
	err := ps.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&programs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}

	fileCounts, err := ps.countBy(ctx, &models.File{})
	if err != nil {
		return nil, err
	}
	folderCounts, err := ps.countBy(ctx, &models.Folder{})
	if err != nil {
		return nil, err
	}

	for i := range programs {
		files := fileCounts[programs[i].ID]
		folders := folderCounts[programs[i].ID]
		programs[i].FilesCount = &files
		programs[i].FoldersCount = &folders
	}
	return programs, nil
}

func (ps *ProgramService) countBy(ctx context.Context, model interface{}) (map[string]int64, error) {
	var rows []containerCount
	err := ps.db.WithContext(ctx).Model(model).
		Select("program_id, COUNT(*) AS total").
		Where("program_id IS NOT NULL").
		Group("program_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count program contents: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ProgramID] = row.Total
	}
	return counts, nil
}

// GetByID returns a program with its newest files and its folders
func (ps *ProgramService) GetByID(ctx context.Context, id string) (*models.Program, error) {
	var program models.Program
	err := ps.db.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(programDetailFiles)
		}).
		Preload("Folders", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		First(&program, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Program not found")
		}
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	return &program, nil
}

// Create adds a program; the slug is derived from the name
func (ps *ProgramService) Create(ctx context.Context, actor Actor, req *models.CreateProgramRequest) (*models.Program, error) {
	name := strings.TrimSpace(req.Name)
	slug := utils.GenerateSlug(name)
	if slug == "" {
		return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "name", Message: "name must contain letters or digits"})
	}

	program := &models.Program{
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		Schedule:    req.Schedule,
		Order:       req.Order,
		IsActive:    true,
	}
	if program.Color == "" {
		program.Color = models.DefaultProgramColor
	}
	if program.Icon == "" {
		program.Icon = models.DefaultProgramIcon
	}

	if err := ps.db.WithContext(ctx).Create(program).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewConflictError("A program with this name already exists")
		}
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	ps.log.WithFields(logrus.Fields{"program_id": program.ID, "user_id": actor.UserID()}).Info("Program created")
	return program, nil
}

// Update applies a partial update and regenerates the slug on rename
func (ps *ProgramService) Update(ctx context.Context, actor Actor, id string, req *models.UpdateProgramRequest) (*models.Program, error) {
	var program models.Program
	if err := ps.db.WithContext(ctx).First(&program, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Program not found")
		}
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	updates := map[string]interface{}{}

	if req.Name.Set {
		name := ""
		if req.Name.Value != nil {
			name = strings.TrimSpace(*req.Name.Value)
		}
		slug := utils.GenerateSlug(name)
		if len([]rune(name)) < 2 || slug == "" {
			return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "name", Message: "name must be at least 2 characters long"})
		}
		updates["name"] = name
		updates["slug"] = slug
	}
	if req.Description.Set {
		updates["description"] = stringOrEmpty(req.Description.Value)
	}
	if req.Color.Set {
		color := models.DefaultProgramColor
		if req.Color.Value != nil && *req.Color.Value != "" {
			if utils.ValidateVar(*req.Color.Value, "hexcolor") != nil {
				return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "color", Message: "color must be a hex color"})
			}
			color = *req.Color.Value
		}
		updates["color"] = color
	}
	if req.Icon.Set {
		icon := models.DefaultProgramIcon
		if req.Icon.Value != nil && *req.Icon.Value != "" {
			icon = *req.Icon.Value
		}
		updates["icon"] = icon
	}
	if req.Schedule.Set {
		updates["schedule"] = stringOrEmpty(req.Schedule.Value)
	}
	if req.Order.Set {
		order := 0
		if req.Order.Value != nil {
			order = *req.Order.Value
		}
		if order < 0 {
			return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "order", Message: "order must be greater than or equal to 0"})
		}
		updates["sort_order"] = order
	}
	if req.IsActive.Set {
		if req.IsActive.Value == nil {
			return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "isActive", Message: "isActive cannot be null"})
		}
		updates["is_active"] = *req.IsActive.Value
	}

	if len(updates) > 0 {
		if err := ps.db.WithContext(ctx).Model(&program).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, utils.NewConflictError("A program with this name already exists")
			}
			return nil, fmt.Errorf("failed to update program: %w", err)
		}
		ps.log.WithFields(logrus.Fields{"program_id": id, "user_id": actor.UserID()}).Info("Program updated")
	}

	return ps.GetByID(ctx, id)
}

// Delete removes a program that no longer has files attached
func (ps *ProgramService) Delete(ctx context.Context, actor Actor, id string) error {
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var program models.Program
		if err := tx.First(&program, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("Program not found")
			}
			return fmt.Errorf("failed to load program: %w", err)
		}

		var files int64
		if err := tx.Model(&models.File{}).Where("program_id = ?", id).Count(&files).Error; err != nil {
			return fmt.Errorf("failed to count program files: %w", err)
		}
		if files > 0 {
			return utils.NewConflictError(fmt.Sprintf("cannot delete program: it has %d associated files", files))
		}

		if err := tx.Delete(&program).Error; err != nil {
			return fmt.Errorf("failed to delete program: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ps.log.WithFields(logrus.Fields{"program_id": id, "user_id": actor.UserID()}).Info("Program deleted")
	return nil
}

// ensureProgram returns a not-found error unless the program exists
func ensureProgram(ctx context.Context, db *gorm.DB, id string) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Program{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check program: %w", err)
	}
	if count == 0 {
		return utils.NewNotFoundError("Program not found")
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
