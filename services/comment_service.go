package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tvcms/models"
	"tvcms/utils"
)

type CommentService struct {
	db         *gorm.DB
	activities *ActivityService
	log        *logrus.Logger
	now        func() time.Time
}

func NewCommentService(db *gorm.DB, activities *ActivityService, log *logrus.Logger) *CommentService {
	return &CommentService{db: db, activities: activities, log: log, now: time.Now}
}

// ListForFile returns top-level comments with their replies, oldest first
func (cs *CommentService) ListForFile(ctx context.Context, fileID string) ([]models.Comment, error) {
	if _, err := findFile(ctx, cs.db, fileID); err != nil {
		return nil, err
	}

	comments := []models.Comment{}
	err := cs.db.WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Replies.User").
		Where("file_id = ? AND parent_id IS NULL", fileID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// Create adds a comment, optionally replying to another comment on the same file
func (cs *CommentService) Create(ctx context.Context, actor Actor, fileID string, req *models.CreateCommentRequest) (*models.Comment, error) {
	if _, err := findFile(ctx, cs.db, fileID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, utils.FieldValidationError("text", "text is required")
	}

	comment := &models.Comment{
		FileID: fileID,
		UserID: actor.UserID(),
		Text:   text,
	}

	if parentID := nonEmpty(req.ParentID); parentID != nil {
		parent, err := cs.find(ctx, *parentID)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return nil, utils.NewNotFoundError("Parent comment not found")
			}
			return nil, err
		}
		if parent.FileID != fileID {
			return nil, utils.FieldValidationError("parentId", "parent comment belongs to another file")
		}
		// Threads are one level deep
		if parent.ParentID != nil {
			return nil, utils.FieldValidationError("parentId", "replies cannot be answered, reply to the top-level comment instead")
		}
		comment.ParentID = &parent.ID
	}

	if err := cs.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	cs.activities.Record(ctx, actor, models.ActionCommentCreate, models.ResourceComment, comment.ID, map[string]interface{}{
		"fileId": fileID,
	})
	return cs.load(ctx, comment.ID)
}

// Update edits the text of a comment; only the author may edit
func (cs *CommentService) Update(ctx context.Context, actor Actor, id string, req *models.UpdateCommentRequest) (*models.Comment, error) {
	comment, err := cs.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != actor.UserID() {
		return nil, utils.NewForbiddenError("You can only edit your own comments")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, utils.FieldValidationError("text", "text is required")
	}

	err = cs.db.WithContext(ctx).Model(comment).Updates(map[string]interface{}{
		"text":      text,
		"is_edited": true,
		"edited_at": cs.now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return cs.load(ctx, id)
}

// Delete removes a comment and its replies; author or admin
func (cs *CommentService) Delete(ctx context.Context, actor Actor, id string) error {
	comment, err := cs.find(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(actor.User, comment, "delete this comment"); err != nil {
		return err
	}

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete replies: %w", err)
		}
		if err := tx.Delete(comment).Error; err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cs.activities.Record(ctx, actor, models.ActionCommentDelete, models.ResourceComment, id, map[string]interface{}{
		"fileId": comment.FileID,
	})
	return nil
}

func (cs *CommentService) find(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := cs.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Comment not found")
		}
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return &comment, nil
}

func (cs *CommentService) load(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := cs.db.WithContext(ctx).Preload("User").First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("Comment not found")
		}
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return &comment, nil
}
