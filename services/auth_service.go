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

type AuthService struct {
	db         *gorm.DB
	jwt        *utils.JWTManager
	activities *ActivityService
	log        *logrus.Logger
	now        func() time.Time
}

func NewAuthService(db *gorm.DB, jwt *utils.JWTManager, activities *ActivityService, log *logrus.Logger) *AuthService {
	return &AuthService{
		db:         db,
		jwt:        jwt,
		activities: activities,
		log:        log,
		now:        time.Now,
	}
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a viewer account and signs it in
func (as *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := NormalizeEmail(req.Email)

	// Check if user already exists
	var count int64
	if err := as.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, utils.NewConflictError("User already exists")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: hashedPassword,
		Name:     strings.TrimSpace(req.Name),
		Role:     models.RoleViewer,
		IsActive: true,
	}
	if err := as.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewConflictError("User already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	as.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered")
	return as.issueTokens(user)
}

// Login verifies credentials and returns a fresh token pair
func (as *AuthService) Login(ctx context.Context, req *models.LoginRequest, actor Actor) (*models.AuthResponse, error) {
	var user models.User
	err := as.db.WithContext(ctx).Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewUnauthenticatedError("Invalid credentials")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsActive {
		return nil, utils.NewUnauthenticatedError("Account is disabled")
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		return nil, utils.NewUnauthenticatedError("Invalid credentials")
	}

	now := as.now()
	if err := as.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		as.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	} else {
		user.LastLogin = &now
	}

	actor.User = &user
	as.activities.Record(ctx, actor, models.ActionLogin, models.ResourceUser, user.ID, nil)

	return as.issueTokens(&user)
}

// Refresh exchanges a refresh token for a new access token
func (as *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error) {
	claims, err := as.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, utils.NewUnauthenticatedError("Invalid refresh token")
	}

	user, err := as.ActiveUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	token, err := as.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.RefreshResponse{
		Token:     token,
		ExpiresIn: int64(as.jwt.AccessTokenTTL().Seconds()),
		TokenType: "Bearer",
	}, nil
}

// Logout records the logout; tokens are stateless and expire on their own
func (as *AuthService) Logout(ctx context.Context, actor Actor) {
	as.activities.Record(ctx, actor, models.ActionLogout, models.ResourceUser, actor.UserID(), nil)
}

// Authenticate resolves an access token to an active user
func (as *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := as.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, utils.NewUnauthenticatedError("Token expired")
		}
		return nil, utils.NewUnauthenticatedError("Invalid token")
	}
	return as.ActiveUser(ctx, claims.UserID)
}

// ActiveUser loads a user that may still use the system
func (as *AuthService) ActiveUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := as.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewUnauthenticatedError("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, utils.NewUnauthenticatedError("Account is disabled")
	}
	return &user, nil
}

func (as *AuthService) issueTokens(user *models.User) (*models.AuthResponse, error) {
	pair, err := as.jwt.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &models.AuthResponse{
		User:         user,
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenType:    "Bearer",
	}, nil
}
