package credit

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies a class of prediction failure.
type ErrorCode string

const (
	ErrCodeMalformedRequest ErrorCode = "MALFORMED_REQUEST"
	ErrCodeMissingField     ErrorCode = "MISSING_FIELD"
	ErrCodeUnknownCategory  ErrorCode = "UNKNOWN_CATEGORY"
	ErrCodeTypeCast         ErrorCode = "TYPE_CAST"
	ErrCodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodePredictionFailed ErrorCode = "PREDICTION_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeTimeout          ErrorCode = "REQUEST_TIMEOUT"
)

// Error is the structured error every predictor operation returns.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"error"`
	Field     string    `json:"field,omitempty"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"-"`
	Timestamp time.Time `json:"-"`
	cause     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error code to the response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ErrCodeMalformedRequest, ErrCodeMissingField, ErrCodeTypeCast:
		return http.StatusBadRequest
	case ErrCodeUnknownCategory:
		return http.StatusUnprocessableEntity
	case ErrCodeModelUnavailable, ErrCodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func NewMalformedRequestError(cause error) *Error {
	e := &Error{
		Code:      ErrCodeMalformedRequest,
		Message:   "Invalid JSON data",
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewMissingFieldError reports every absent field; Field holds the first.
func NewMissingFieldError(fields ...string) *Error {
	e := &Error{
		Code:      ErrCodeMissingField,
		Message:   "Missing required field",
		Timestamp: time.Now().UTC(),
	}
	if len(fields) > 0 {
		e.Field = fields[0]
		e.Details = fmt.Sprintf("missing: %v", fields)
	}
	if len(fields) > 1 {
		e.Message = "Missing required fields"
	}
	return e
}

func NewUnknownCategoryError(field, value string, cause error) *Error {
	return &Error{
		Code:      ErrCodeUnknownCategory,
		Message:   "Unknown category",
		Field:     field,
		Details:   fmt.Sprintf("value %q was not seen during training", value),
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewTypeCastError(field string, value interface{}, target DType) *Error {
	return &Error{
		Code:      ErrCodeTypeCast,
		Message:   "Invalid field type",
		Field:     field,
		Details:   fmt.Sprintf("cannot cast %v (%T) to %s", value, value, target),
		Timestamp: time.Now().UTC(),
	}
}

func NewModelUnavailableError(cause error) *Error {
	e := &Error{
		Code:      ErrCodeModelUnavailable,
		Message:   "Model unavailable",
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

func NewPredictionFailedError(cause error) *Error {
	e := &Error{
		Code:      ErrCodePredictionFailed,
		Message:   "Prediction failed",
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// AsError normalizes any error into an *Error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:      ErrCodeInternal,
		Message:   "Internal Server Error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
