package utils

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tvcms/models"
)

const (
	contextUserKey   = "user"
	contextUserIDKey = "user_id"
)

// SuccessResponse sends a successful API response
func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// CreatedResponse sends a 201 created response
func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// ErrorResponse sends an error API response
func ErrorResponse(c *gin.Context, statusCode int, message string, fields []models.FieldError) {
	c.JSON(statusCode, models.APIResponse{
		Success:   false,
		Message:   message,
		Error:     http.StatusText(statusCode),
		Errors:    fields,
		Timestamp: time.Now(),
	})
}

// ValidationErrorResponse sends a validation error response with per-field messages
func ValidationErrorResponse(c *gin.Context, err error) {
	if appErr, ok := AsAppError(err); ok && appErr.Kind == KindValidation {
		ErrorResponse(c, http.StatusBadRequest, appErr.Message, appErr.Fields)
		return
	}
	ErrorResponse(c, http.StatusBadRequest, "Validation failed", []models.FieldError{{Message: err.Error()}})
}

// UnauthorizedResponse sends an unauthorized response
func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

// ForbiddenResponse sends a forbidden response
func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Access forbidden"
	}
	ErrorResponse(c, http.StatusForbidden, message, nil)
}

// NotFoundResponse sends a not found response
func NotFoundResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	ErrorResponse(c, http.StatusNotFound, message, nil)
}

// InternalServerErrorResponse sends an internal server error response
func InternalServerErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, message, nil)
}

// BadRequestResponse sends a bad request response
func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message, nil)
}

// TooManyRequestsResponse sends a rate limit exceeded response
func TooManyRequestsResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Rate limit exceeded"
	}
	ErrorResponse(c, http.StatusTooManyRequests, message, nil)
}

// PaginatedResponse sends a list response with pagination metadata
func PaginatedResponse(c *gin.Context, message string, data interface{}, page, limit int, total int64) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: NewPagination(page, limit, total),
		Timestamp:  time.Now(),
	})
}

// NewPagination builds pagination metadata; pages is at least 1
func NewPagination(page, limit int, total int64) *models.Pagination {
	pages := 1
	if limit > 0 && total > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &models.Pagination{
		Total: total,
		Page:  page,
		Pages: pages,
		Limit: limit,
	}
}

// HandleError translates any service error into the JSON error shape.
// Unknown errors are reported as 500 and their text is only exposed in debug mode.
func HandleError(c *gin.Context, err error) {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.StatusCode()
		message := appErr.Message
		if status >= http.StatusInternalServerError && gin.Mode() == gin.DebugMode && appErr.Err != nil {
			c.JSON(status, models.APIResponse{
				Success:   false,
				Message:   message,
				Error:     appErr.Err.Error(),
				Timestamp: time.Now(),
			})
			return
		}
		ErrorResponse(c, status, message, appErr.Fields)
		return
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFoundResponse(c, "")
		return
	case errors.Is(err, gorm.ErrDuplicatedKey):
		BadRequestResponse(c, "Resource already exists")
		return
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		BadRequestResponse(c, "Referenced resource does not exist or is still in use")
		return
	case errors.As(err, &maxBytesErr):
		BadRequestResponse(c, "File exceeds the maximum allowed size")
		return
	}

	if gin.Mode() == gin.DebugMode {
		c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success:   false,
			Message:   "Internal server error",
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return
	}
	InternalServerErrorResponse(c, "")
}

// AbortWithError aborts request with error response
func AbortWithError(c *gin.Context, statusCode int, message string) {
	ErrorResponse(c, statusCode, message, nil)
	c.Abort()
}

// GetUserFromContext gets user from gin context
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	userModel, ok := user.(*models.User)
	return userModel, ok
}

// GetUserIDFromContext gets user ID from gin context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(contextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}

// SetUserInContext sets user in gin context
func SetUserInContext(c *gin.Context, user *models.User) {
	c.Set(contextUserKey, user)
	c.Set(contextUserIDKey, user.ID)
}
