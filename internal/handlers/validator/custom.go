package validator

import (
	"regexp"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/go-playground/validator/v10"
)

var sourceNameValidRegex = regexp.MustCompile(`^[a-zA-Z0-9+\-_.]+$`)

func jobTypeValidator(fl validator.FieldLevel) bool {
	_, ok := api.StringToJobType(fl.Field().String())
	return ok
}

func inputFormatValidator(fl validator.FieldLevel) bool {
	_, ok := api.StringToInputFormat(fl.Field().String())
	return ok
}

func sourceNameValidator(fl validator.FieldLevel) bool {
	return sourceNameValidRegex.MatchString(fl.Field().String())
}
