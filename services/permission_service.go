package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tvcms/models"
	"tvcms/utils"
)

// PermissionService stores per-resource grants. Grants are recorded for the
// frontend's sharing view; mutate checks still follow the owner/admin rule.
type PermissionService struct {
	db         *gorm.DB
	activities *ActivityService
	log        *logrus.Logger
	now        func() time.Time
}

func NewPermissionService(db *gorm.DB, activities *ActivityService, log *logrus.Logger) *PermissionService {
	return &PermissionService{db: db, activities: activities, log: log, now: time.Now}
}

// List returns the unexpired grants on a resource; owner or admin only
func (ps *PermissionService) List(ctx context.Context, actor Actor, resourceType models.ResourceType, resourceID string) ([]models.Permission, error) {
	resource, err := ps.resource(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor.User, resource, "view the permissions of this "+string(resourceType)); err != nil {
		return nil, err
	}

	grants := []models.Permission{}
	err = ps.db.WithContext(ctx).
		Preload("User").
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Where("expires_at IS NULL OR expires_at > ?", ps.now()).
		Order("created_at ASC").
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return grants, nil
}

// Grant records a permission. Granting the same level twice refreshes the expiry.
func (ps *PermissionService) Grant(ctx context.Context, actor Actor, req *models.GrantPermissionRequest) (*models.Permission, error) {
	resource, err := ps.resource(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor.User, resource, "share this "+string(req.ResourceType)); err != nil {
		return nil, err
	}

	if req.ExpiresAt != nil && !req.ExpiresAt.After(ps.now()) {
		return nil, utils.FieldValidationError("expiresAt", "expiresAt must be in the future")
	}

	var grantee models.User
	if err := ps.db.WithContext(ctx).First(&grantee, "id = ?", req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var grant models.Permission
	err = ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND resource_type = ? AND resource_id = ? AND permission = ?",
			req.UserID, req.ResourceType, req.ResourceID, req.Permission).
			First(&grant).Error
		switch {
		case err == nil:
			return tx.Model(&grant).Updates(map[string]interface{}{
				"expires_at": req.ExpiresAt,
				"granted_by": actor.UserID(),
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			grant = models.Permission{
				UserID:       req.UserID,
				ResourceType: req.ResourceType,
				ResourceID:   req.ResourceID,
				Permission:   req.Permission,
				GrantedBy:    actor.UserID(),
				ExpiresAt:    req.ExpiresAt,
			}
			return tx.Create(&grant).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to grant permission: %w", err)
	}

	grant.ExpiresAt = req.ExpiresAt
	grant.GrantedBy = actor.UserID()
	grant.User = &grantee

	ps.activities.Record(ctx, actor, models.ActionPermissionGrant, req.ResourceType, req.ResourceID, map[string]interface{}{
		"userId":     req.UserID,
		"permission": req.Permission,
	})
	return &grant, nil
}

// Revoke removes a grant; allowed for the granter, the resource owner or an admin
func (ps *PermissionService) Revoke(ctx context.Context, actor Actor, id string) error {
	var grant models.Permission
	if err := ps.db.WithContext(ctx).First(&grant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("Permission not found")
		}
		return fmt.Errorf("failed to load permission: %w", err)
	}

	if grant.GrantedBy != actor.UserID() {
		resource, err := ps.resource(ctx, grant.ResourceType, grant.ResourceID)
		switch {
		case err == nil:
			if err := Authorize(actor.User, resource, "revoke this permission"); err != nil {
				return err
			}
		case errors.Is(err, utils.ErrNotFound):
			// the resource is gone; only admins may clean up
			if actor.User == nil || !actor.User.IsAdmin() {
				return utils.NewForbiddenError("You do not have permission to revoke this permission")
			}
		default:
			return err
		}
	}

	if err := ps.db.WithContext(ctx).Delete(&grant).Error; err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}

	ps.activities.Record(ctx, actor, models.ActionPermissionRevoke, grant.ResourceType, grant.ResourceID, map[string]interface{}{
		"userId":     grant.UserID,
		"permission": grant.Permission,
	})
	return nil
}

// PurgeExpired deletes grants whose expiry has passed
func (ps *PermissionService) PurgeExpired(ctx context.Context) (int64, error) {
	result := ps.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", ps.now()).
		Delete(&models.Permission{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired permissions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		ps.log.WithField("count", result.RowsAffected).Info("Expired permissions purged")
	}
	return result.RowsAffected, nil
}

func (ps *PermissionService) resource(ctx context.Context, resourceType models.ResourceType, id string) (Owned, error) {
	switch resourceType {
	case models.ResourceFolder:
		return findFolder(ctx, ps.db, id)
	case models.ResourceFile:
		return findFile(ctx, ps.db, id)
	default:
		return nil, utils.FieldValidationError("resourceType", "resourceType must be one of: folder file")
	}
}
