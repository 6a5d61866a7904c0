package models

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
)

var slugRegex = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("slug", slugValidator)
}

func slugValidator(fl validator.FieldLevel) bool {
	return slugRegex.MatchString(fl.Field().String())
}

// Validate checks the struct tags of a model and reports the failing fields as ErrInvalidInput.
func Validate(m any) apperrors.Error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return dberror.ErrInvalidInput.Err(err)
	}
	var fields []string
	for _, fe := range ves {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return dberror.ErrInvalidInput.Msg("invalid fields: " + strings.Join(fields, ", "))
}
