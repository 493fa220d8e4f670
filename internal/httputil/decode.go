package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// notblank rejects strings that are empty after trimming whitespace.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// DecodeJSON reads a JSON body into dst and validates its struct tags.
// Every failure is returned as a 4xx AppError.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.BodyTooLarge().WithCause(err)
		}
		return apperrors.ValidationError("Invalid request body").WithCause(err)
	}
	return Validate(dst)
}

// Validate checks struct tags and reports the first failing field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperrors.Internal("Invalid validation target").WithCause(err)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.ValidationError("Validation failed").WithCause(err)
	}

	first := verrs[0]
	field := first.Field()
	switch first.Tag() {
	case "required", "notblank":
		return apperrors.MissingRequired(field).WithDetails(map[string]string{"field": field})
	case "email":
		return apperrors.InvalidInput(field, "must be a valid email address")
	case "oneof":
		return apperrors.InvalidInput(field, fmt.Sprintf("must be one of [%s]", first.Param()))
	case "min":
		return apperrors.InvalidInput(field, fmt.Sprintf("must be at least %s characters long", first.Param()))
	case "max":
		return apperrors.InvalidInput(field, fmt.Sprintf("must be at most %s characters long", first.Param()))
	default:
		return apperrors.InvalidInput(field, fmt.Sprintf("failed on '%s'", first.Tag()))
	}
}
