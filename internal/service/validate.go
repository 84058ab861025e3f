package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/profile-store/internal/apperror"
	"github.com/sakif/profile-store/internal/model"
)

// newValidator returns a validator that reports fields by their JSON names,
// so error messages and the "field" of the response match the payload the
// client sent ("skills[1].name" rather than "Skills[1].Name").
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizeInput trims surrounding whitespace from the required text
// fields, so "   " counts as missing.
func normalizeInput(in *model.ProfileInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	for i := range in.Skills {
		in.Skills[i].Name = strings.TrimSpace(in.Skills[i].Name)
	}
	for i := range in.Projects {
		in.Projects[i].Title = strings.TrimSpace(in.Projects[i].Title)
	}
	for i := range in.Work {
		in.Work[i].Company = strings.TrimSpace(in.Work[i].Company)
	}
}

// toValidationError converts the first validator failure into an
// apperror.ValidationFailed carrying the offending field path.
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}

	fe := fieldErrs[0]
	// Namespace is "ProfileInput.skills[0].name"; drop the struct name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "max":
		msg = fmt.Sprintf("%s must be %s characters or less", field, fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return apperror.ValidationFailed(field, msg)
}
