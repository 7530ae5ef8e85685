// package validation provides helper functions for request data validation.
// It uses the go-playground/validator library and includes custom validation rules.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var (
	weekIDRe = regexp.MustCompile(`^\d{4}-W\d{2}$`)
	slugRe   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// init registers custom validation rules with the validator instance.
func init() {
	// The "week_id" tag accepts ISO week identifiers such as "2026-W05".
	// Empty strings pass so that optional fields can default to the current week.
	err := validate.RegisterValidation("week_id", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			return true
		}

		return weekIDRe.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register custom validation: %v", err))
	}

	// The "slug" tag covers project and team identifiers coming from the URL path.
	err = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		if fl.Field().String() == "" {
			// Allow empty strings to be handled by the 'required' tag.
			return true
		}

		return slugRe.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register custom validation: %v", err))
	}
}

// ValidationError is a custom error type that holds a slice of validation error messages.
type ValidationError struct {
	Errors []string
}

// Error returns a single string concatenating all validation error messages.
func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// ValidateStruct performs validation on a given struct based on its validation tags.
// If validation fails, it returns a *ValidationError with user-friendly messages.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors []string

		for _, err := range err.(validator.ValidationErrors) {
			var message string

			switch err.Tag() {
			case "week_id":
				message = fmt.Sprintf(
					"field '%s' must look like '2026-W05'",
					err.Field(),
				)
			case "slug":
				message = fmt.Sprintf(
					"field '%s' must contain only lowercase letters, numbers, hyphens, and underscores",
					err.Field(),
				)
			default:
				message = fmt.Sprintf(
					"field '%s' failed on the '%s' tag",
					err.Field(),
					err.Tag(),
				)
			}
			validationErrors = append(validationErrors, message)
		}

		return &ValidationError{Errors: validationErrors}
	}

	return nil
}
