package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"tvcms/models"
)

var (
	validate        *validator.Validate
	folderNameRegex = regexp.MustCompile(`^[^<>:"/\\|?*]+$`)
)

func init() {
	validate = validator.New()

	// Register custom validations
	validate.RegisterValidation("role", validateRole)
	validate.RegisterValidation("folder_name", validateFolderName)

	// Report fields by their JSON name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateStruct validates a struct using validator tags and returns a
// validation AppError listing every failing field
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

// formatValidationErrors converts validator errors into field errors
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationError(err.Error())
	}

	fields := make([]models.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, models.FieldError{
			Field:   e.Field(),
			Message: getValidationMessage(e),
		})
	}
	return NewValidationError("Validation failed", fields...)
}

// getValidationMessage returns a user-friendly validation message
func getValidationMessage(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color such as #3B82F6", field)
	case "role":
		return fmt.Sprintf("%s must be one of: admin producer editor viewer", field)
	case "folder_name":
		return fmt.Sprintf("%s contains invalid characters", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// FieldValidationError builds a single-field validation error
func FieldValidationError(field, message string) error {
	return NewValidationError("Validation failed", models.FieldError{Field: field, Message: message})
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).IsValid()
}

func validateFolderName(fl validator.FieldLevel) bool {
	return folderNameRegex.MatchString(fl.Field().String())
}
