package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// FieldError describes a single failed validation constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Framework is the last built-in stage of the chain. It covers failure
// categories produced by request binding rather than by application
// code: struct validation, malformed JSON bodies and unparseable
// query parameters.
type Framework struct{}

func NewFramework() *Framework {
	return &Framework{}
}

func (f *Framework) Name() string {
	return "framework"
}

func (f *Framework) Resolve(_ Request, err error) (*Resolution, bool) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return &Resolution{
			Status:  http.StatusBadRequest,
			Code:    "VALIDATION_ERROR",
			Message: "Input validation failed.",
			Details: buildValidationErrors(ve),
		}, true
	}

	var se *json.SyntaxError
	if errors.As(err, &se) {
		return &Resolution{
			Status:  http.StatusBadRequest,
			Code:    "MALFORMED_JSON",
			Message: fmt.Sprintf("Request body contains malformed JSON at offset %d", se.Offset),
		}, true
	}

	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return &Resolution{
			Status:  http.StatusBadRequest,
			Code:    "MALFORMED_JSON",
			Message: fmt.Sprintf("Field '%s' must be of type %s", ute.Field, ute.Type.String()),
		}, true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Resolution{
			Status:  http.StatusBadRequest,
			Code:    "MALFORMED_JSON",
			Message: "Request body is empty or truncated",
		}, true
	}

	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return &Resolution{
			Status:  http.StatusBadRequest,
			Code:    "VALIDATION_ERROR",
			Message: fmt.Sprintf("Value '%s' is not a valid number", ne.Num),
		}, true
	}

	return nil, false
}

func buildValidationErrors(ve validator.ValidationErrors) []FieldError {
	details := make([]FieldError, len(ve))
	for i, fe := range ve {
		details[i] = FieldError{
			Field:   fe.Field(),
			Message: getValidationErrorMsg(fe),
		}
	}
	return details
}

func getValidationErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "email":
		return fmt.Sprintf("Field '%s' must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of [%s]", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("Field '%s' must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("Field '%s' must be less than or equal to %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("Field '%s' must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
