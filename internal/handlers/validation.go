package handlers

import (
	"fmt"
	"regexp"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/go-playground/validator/v10"
)

// ValidationErrorResponse represents a validation error with field-level details
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var numericPattern = regexp.MustCompile(`^\d+$`)

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("forum_username", func(fl validator.FieldLevel) bool {
		return models.ValidUsername(fl.Field().String())
	})
	_ = v.RegisterValidation("numeric_id", func(fl validator.FieldLevel) bool {
		return numericPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("known_role", func(fl validator.FieldLevel) bool {
		return models.IsKnownRole(models.Role(fl.Field().String()))
	})
	return v
}

// ValidateRequest validates a request struct and returns the first
// failure as a ValidationError carrying a user-facing message.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		fe := ve[0]
		return models.NewValidationError(fe.Field(), formatValidationError(fe))
	}
	return models.NewValidationError("", "Некорректный запрос")
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Заполните все поля"
	case "email":
		return "Некорректный email"
	case "min":
		return fmt.Sprintf("Минимальная длина: %s", fe.Param())
	case "max":
		return fmt.Sprintf("Максимальная длина: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Значение должно быть не меньше %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Значение должно быть не больше %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Допустимые значения: %s", fe.Param())
	case "forum_username":
		return "Имя пользователя: 3-20 символов, только буквы, цифры и _"
	case "numeric_id":
		return "User ID должен быть числом"
	case "known_role":
		return "Неизвестная роль"
	default:
		return fmt.Sprintf("Некорректное значение: %s", fe.Tag())
	}
}
