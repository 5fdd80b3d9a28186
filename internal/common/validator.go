package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// RequestValidator checks bound gallery requests and answers 400 with one
// line per rejected field.
type RequestValidator struct {
	Validator *validator.Validate
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if rv.Validator == nil {
		rv.Validator = validator.New()
	}
	err := rv.Validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request").SetInternal(err)
	}
	problems := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		problems = append(problems, describeField(fe))
	}
	return echo.NewHTTPError(http.StatusBadRequest, strings.Join(problems, "; ")).SetInternal(err)
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
