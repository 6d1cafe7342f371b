package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts validator/v10 to echo.Validator.
type RequestValidator struct {
	v *validator.Validate
}

func NewValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their wire name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// fieldError is one entry of a 422 detail list.
type fieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// bindAndValidate decodes the request into dst and validates it. On failure
// the 422 response has already been written and ok is false.
func bindAndValidate(c echo.Context, dst interface{}) (ok bool, err error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": "Malformed request body"})
	}
	if err := c.Validate(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return false, err
		}
		out := make([]fieldError, 0, len(ve))
		for _, fe := range ve {
			out = append(out, fieldError{Field: fe.Field(), Error: fe.Tag()})
		}
		return false, c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": out})
	}
	return true, nil
}
