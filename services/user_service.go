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

type UserService struct {
	db         *gorm.DB
	activities *ActivityService
	log        *logrus.Logger
}

func NewUserService(db *gorm.DB, activities *ActivityService, log *logrus.Logger) *UserService {
	return &UserService{db: db, activities: activities, log: log}
}

// List returns users newest first, filtered by search term and role.
// Page and limit are expected to be normalized by the caller.
func (us *UserService) List(ctx context.Context, q models.UserListQuery) ([]models.User, int64, error) {
	page, limit := utils.NormalizePagination(q.Page, q.Limit)
	query := us.db.WithContext(ctx).Model(&models.User{})
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := utils.ContainsPattern(term)
		query = query.Where(utils.LikeClause("name")+" OR "+utils.LikeClause("email"), pattern, pattern)
	}
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	users := []models.User{}
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetByID retrieves a user by id
func (us *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := us.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// Create adds an account on behalf of an admin
func (us *UserService) Create(ctx context.Context, actor Actor, req *models.CreateUserRequest) (*models.User, error) {
	email := NormalizeEmail(req.Email)
	if err := us.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleViewer
	}

	user := &models.User{
		Email:    email,
		Password: hashedPassword,
		Name:     strings.TrimSpace(req.Name),
		Role:     role,
		IsActive: true,
	}
	if err := us.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewConflictError("Email already in use")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	us.activities.Record(ctx, actor, models.ActionUserCreate, models.ResourceUser, user.ID, map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})
	return user, nil
}

// Update applies a partial update. Users may not deactivate themselves.
func (us *UserService) Update(ctx context.Context, actor Actor, id string, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := us.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IsActive.Set && req.IsActive.Value != nil && !*req.IsActive.Value && user.ID == actor.UserID() {
		return nil, utils.NewValidationError("You cannot deactivate your own account")
	}

	updates := map[string]interface{}{}

	if req.Name.Set {
		name := ""
		if req.Name.Value != nil {
			name = strings.TrimSpace(*req.Name.Value)
		}
		if len([]rune(name)) < 2 {
			return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "name", Message: "name must be at least 2 characters long"})
		}
		updates["name"] = name
	}

	if req.Email.Set {
		if req.Email.Value == nil || utils.ValidateVar(*req.Email.Value, "required,email") != nil {
			return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "email", Message: "email must be a valid email address"})
		}
		email := NormalizeEmail(*req.Email.Value)
		if email != user.Email {
			if err := us.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
		}
		updates["email"] = email
	}

	if req.Role.Set {
		if req.Role.Value == nil || !req.Role.Value.IsValid() {
			return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "role", Message: "role must be one of admin producer editor viewer"})
		}
		updates["role"] = *req.Role.Value
	}

	if req.IsActive.Set {
		if req.IsActive.Value == nil {
			return nil, utils.NewValidationError("Validation failed", models.FieldError{Field: "isActive", Message: "isActive cannot be null"})
		}
		updates["is_active"] = *req.IsActive.Value
	}

	if len(updates) > 0 {
		if err := us.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, utils.NewConflictError("Email already in use")
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		us.activities.Record(ctx, actor, models.ActionUserUpdate, models.ResourceUser, user.ID, updatedFields(updates))
	}

	return us.GetByID(ctx, id)
}

// Delete removes an account. Users may not delete themselves, and accounts
// that still own folders or files must be emptied first.
func (us *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if id == actor.UserID() {
		return utils.NewValidationError("You cannot delete your own account")
	}

	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("User not found")
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		var folders, files int64
		if err := tx.Model(&models.Folder{}).Where("owner_id = ?", id).Count(&folders).Error; err != nil {
			return fmt.Errorf("failed to count folders: %w", err)
		}
		if err := tx.Unscoped().Model(&models.File{}).Where("uploaded_by = ?", id).Count(&files).Error; err != nil {
			return fmt.Errorf("failed to count files: %w", err)
		}
		if folders > 0 || files > 0 {
			return utils.NewConflictError(fmt.Sprintf("cannot delete user: they own %d folders and %d files", folders, files))
		}

		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	us.log.WithFields(logrus.Fields{"user_id": id, "deleted_by": actor.UserID()}).Info("User deleted")
	us.activities.Record(ctx, actor, models.ActionUserDelete, models.ResourceUser, id, nil)
	return nil
}

// ChangePassword sets a new password. Admins may reset anyone's password;
// everyone else may only change their own and must confirm the current one.
func (us *UserService) ChangePassword(ctx context.Context, actor Actor, id string, req *models.ChangePasswordRequest) error {
	self := actor.UserID() == id
	if !self && (actor.User == nil || !actor.User.IsAdmin()) {
		return utils.NewForbiddenError("You do not have permission to change this password")
	}

	user, err := us.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if self && !utils.CheckPasswordHash(req.CurrentPassword, user.Password) {
		return utils.NewUnauthenticatedError("Current password is incorrect")
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := us.db.WithContext(ctx).Model(user).Update("password", hashedPassword).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	us.activities.Record(ctx, actor, models.ActionUserUpdate, models.ResourceUser, user.ID, map[string]interface{}{
		"fields": []string{"password"},
	})
	return nil
}

func (us *UserService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	query := us.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return utils.NewConflictError("Email already in use")
	}
	return nil
}

// updatedFields lists the column names written by an update, for the audit trail
func updatedFields(updates map[string]interface{}) map[string]interface{} {
	fields := make([]string, 0, len(updates))
	for column := range updates {
		fields = append(fields, column)
	}
	return map[string]interface{}{"fields": fields}
}
