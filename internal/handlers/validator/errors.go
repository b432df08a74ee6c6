package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Message flattens a validation error into one human-readable reason.
func Message(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	reasons := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		switch fieldErr.Tag() {
		case "required":
			reasons = append(reasons, fmt.Sprintf("field %q is required", fieldErr.Field()))
		default:
			reasons = append(reasons, fmt.Sprintf("field %q failed %q validation", fieldErr.Field(), fieldErr.Tag()))
		}
	}
	return strings.Join(reasons, "; ")
}
