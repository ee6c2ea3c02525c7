package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vidshare/backend/internal/apperrors"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validationError turns the first validator failure into a BadRequest.
// Missing fields are reported before malformed ones.
func validationError(err error) error {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) || len(invalid) == 0 {
		return apperrors.BadRequest("invalid request")
	}

	first := invalid[0]
	for _, fe := range invalid {
		if fe.Tag() == "required" {
			first = fe
			break
		}
	}

	switch first.Tag() {
	case "required":
		return apperrors.BadRequest(fmt.Sprintf("%s is required", first.Field()))
	case "email":
		return apperrors.BadRequest(fmt.Sprintf("%s must be a valid email address", first.Field()))
	case "min":
		return apperrors.BadRequest(fmt.Sprintf("%s must be at least %s characters", first.Field(), first.Param()))
	case "max":
		return apperrors.BadRequest(fmt.Sprintf("%s must be at most %s characters", first.Field(), first.Param()))
	case "oneof":
		return apperrors.BadRequest(fmt.Sprintf("%s must be one of: %s", first.Field(), first.Param()))
	case "uuid":
		return apperrors.BadRequest(fmt.Sprintf("%s must be a valid id", first.Field()))
	default:
		return apperrors.BadRequest(fmt.Sprintf("%s is invalid", first.Field()))
	}
}
