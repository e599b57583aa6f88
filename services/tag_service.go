package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tvcms/models"
	"tvcms/utils"
)

// usageCountExpr counts the live files carrying the tag in the current row
const usageCountExpr = `(SELECT COUNT(*) FROM file_tags
	JOIN files ON files.id = file_tags.file_id
	WHERE file_tags.tag_id = tags.id AND files.deleted_at IS NULL)`

type TagService struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewTagService(db *gorm.DB, log *logrus.Logger) *TagService {
	return &TagService{db: db, log: log}
}

// List returns tags ordered by popularity
func (ts *TagService) List(ctx context.Context, search string) ([]models.Tag, error) {
	query := ts.db.WithContext(ctx).Model(&models.Tag{})
	if term := strings.TrimSpace(search); term != "" {
		query = query.Where(utils.LikeClause("name"), utils.ContainsPattern(term))
	}

	tags := []models.Tag{}
	if err := query.Order("usage_count DESC").Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// Create finds or creates a single tag; attributes apply only when the tag is new
func (ts *TagService) Create(ctx context.Context, req *models.CreateTagRequest) (*models.Tag, error) {
	name := strings.TrimSpace(req.Name)
	if utils.GenerateSlug(name) == "" {
		return nil, utils.FieldValidationError("name", "name must contain letters or digits")
	}

	tag, err := ts.findOrCreate(ctx, ts.db, models.Tag{
		Name:        name,
		Color:       req.Color,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Delete removes a tag and detaches it from every file
func (ts *TagService) Delete(ctx context.Context, id string) error {
	return ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.First(&tag, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("Tag not found")
			}
			return fmt.Errorf("failed to load tag: %w", err)
		}

		if err := tx.Exec("DELETE FROM file_tags WHERE tag_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to detach tag: %w", err)
		}
		if err := tx.Delete(&tag).Error; err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}

		ts.log.WithFields(logrus.Fields{"tag_id": id, "slug": tag.Slug}).Info("Tag deleted")
		return nil
	})
}

// Resolve finds or creates one tag per distinct slug in names, inside tx
func (ts *TagService) Resolve(ctx context.Context, tx *gorm.DB, names []string) ([]models.Tag, error) {
	names = utils.NormalizeTagNames(names)
	if err := utils.ValidateTagNames(names); err != nil {
		return nil, err
	}
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag, err := ts.findOrCreate(ctx, tx, models.Tag{Name: name})
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// Replace sets the file's tag set to tags, never merging with the previous
// set, and recomputes usage for every tag touched
func (ts *TagService) Replace(ctx context.Context, tx *gorm.DB, file *models.File, tags []models.Tag) error {
	var previous []string
	err := tx.WithContext(ctx).Table("file_tags").Where("file_id = ?", file.ID).Pluck("tag_id", &previous).Error
	if err != nil {
		return fmt.Errorf("failed to load current tags: %w", err)
	}

	if err := tx.WithContext(ctx).Model(file).Association("Tags").Replace(tags); err != nil {
		return fmt.Errorf("failed to attach tags: %w", err)
	}

	touched := previous
	for _, tag := range tags {
		touched = append(touched, tag.ID)
	}
	return ts.Recount(ctx, tx, touched)
}

// Recount recomputes usageCount for the given tags
func (ts *TagService) Recount(ctx context.Context, tx *gorm.DB, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	err := tx.WithContext(ctx).Model(&models.Tag{}).
		Where("id IN ?", tagIDs).
		Update("usage_count", gorm.Expr(usageCountExpr)).Error
	if err != nil {
		return fmt.Errorf("failed to recount tag usage: %w", err)
	}
	return nil
}

func (ts *TagService) findOrCreate(ctx context.Context, db *gorm.DB, candidate models.Tag) (*models.Tag, error) {
	slug := utils.GenerateSlug(candidate.Name)

	var existing models.Tag
	err := db.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}

	candidate.Slug = slug
	// a concurrent insert of the same slug makes this a no-op; the row is re-read below
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	var tag models.Tag
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	return &tag, nil
}
