package audit

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies why a check could not produce findings.
type Category string

const (
	InvalidRequest     Category = "InvalidRequest"
	SessionNotReady    Category = "SessionNotReady"
	SessionUnavailable Category = "SessionUnavailable"
	NavigationError    Category = "NavigationError"
	ScriptError        Category = "ScriptError"
	UpstreamFailure    Category = "UpstreamFailure"
	MetricUnavailable  Category = "MetricUnavailable"
	ExtractionError    Category = "ExtractionError"
	EvaluationError    Category = "EvaluationError"
	Internal           Category = "Internal"
)

// Error is the typed failure returned by auditors and the orchestrator.
// Message is safe to show to callers; Err is the underlying cause and is only logged.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by category, so errors.Is(err, &Error{Category: UpstreamFailure}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Category == e.Category && (t.Message == "" || t.Message == e.Message)
}

func NewError(category Category, message string, err error) *Error {
	return &Error{Category: category, Message: message, Err: err}
}

func Errorf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// CategoryOf reports the category of err, or Internal for untyped errors.
func CategoryOf(err error) Category {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Category
	}
	return Internal
}

// SafeMessage returns the caller-facing message for err.
func SafeMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return "internal error"
}

// HTTPStatus maps a failure category to the status used by the single-check routes.
func HTTPStatus(c Category) int {
	switch c {
	case InvalidRequest, NavigationError:
		return http.StatusBadRequest
	case SessionNotReady, SessionUnavailable:
		return http.StatusServiceUnavailable
	case UpstreamFailure, ExtractionError, EvaluationError, ScriptError, MetricUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
