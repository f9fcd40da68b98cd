package config

import (
	"fmt"
	"strings"

	"github.com/aleister1102/filesentry/internal/errorwrapper"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	validate := validator.New()

	// Register custom validation for LogLevel
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		level := strings.ToLower(fl.Field().String())
		switch level {
		case "", "debug", "info", "warn", "error", "fatal", "panic": // Allow empty for omitempty
			return true
		default:
			return false
		}
	})

	// Register custom validation for LogFormat
	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		format := strings.ToLower(fl.Field().String())
		switch format {
		case "", "console", "text", "json": // Allow empty for omitempty
			return true
		default:
			return false
		}
	})

	// Register custom validation for the hash algorithm selector
	_ = validate.RegisterValidation("hashalgo", func(fl validator.FieldLevel) bool {
		algo := strings.ToLower(fl.Field().String())
		switch algo {
		case "", "sha256", "sha1", "sha512":
			return true
		default:
			return false
		}
	})

	if err := validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var messages []string
			for _, fieldError := range validationErrors {
				messages = append(messages, fmt.Sprintf(
					"field '%s' failed validation '%s' (value: '%v')",
					fieldError.Namespace(), fieldError.Tag(), fieldError.Value(),
				))
			}
			return fmt.Errorf("%w: %s", errorwrapper.ErrInvalidConfiguration, strings.Join(messages, "; "))
		}
		return fmt.Errorf("%w: %v", errorwrapper.ErrInvalidConfiguration, err)
	}

	return nil
}
