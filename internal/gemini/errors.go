package gemini

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrorClass is the failure taxonomy for upstream calls. Every error
// leaving this package carries exactly one class.
type ErrorClass string

const (
	ClassInvalidRequest  ErrorClass = "invalid_request"
	ClassUnauthorized    ErrorClass = "unauthorized"
	ClassForbidden       ErrorClass = "forbidden"
	ClassNotFound        ErrorClass = "not_found"
	ClassRateLimited     ErrorClass = "rate_limited"
	ClassContentFiltered ErrorClass = "content_filtered"
	ClassServerError     ErrorClass = "server_error"
	ClassFileError       ErrorClass = "file_error"
	ClassUnknown         ErrorClass = "unknown"
)

// CallError is a classified upstream failure.
type CallError struct {
	Class   ErrorClass
	Message string
	Err     error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *CallError) Unwrap() error { return e.Err }

// Retriable reports whether the failure class is transient.
func (e *CallError) Retriable() bool {
	return e.Class == ClassRateLimited || e.Class == ClassServerError
}

// NewCallError builds a CallError with the given class and message.
func NewCallError(class ErrorClass, format string, args ...any) *CallError {
	return &CallError{Class: class, Message: fmt.Sprintf(format, args...)}
}

// classifyError maps an upstream error to a CallError. Structured API
// errors are classified by HTTP status code; anything else falls back to
// message patterns because the SDK does not expose typed errors for
// every transport failure.
func classifyError(err error) *CallError {
	if err == nil {
		return nil
	}

	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &CallError{
			Class:   classFromStatusCode(apiErr.Code),
			Message: apiErr.Message,
			Err:     err,
		}
	}

	return &CallError{
		Class:   classFromMessage(err.Error()),
		Message: err.Error(),
		Err:     err,
	}
}

func classFromStatusCode(code int) ErrorClass {
	switch {
	case code == 400:
		return ClassInvalidRequest
	case code == 401:
		return ClassUnauthorized
	case code == 403:
		return ClassForbidden
	case code == 404:
		return ClassNotFound
	case code == 429:
		return ClassRateLimited
	case code >= 500 && code <= 599:
		return ClassServerError
	default:
		return ClassUnknown
	}
}

// messagePatterns groups error substrings by class, matched
// case-insensitively in priority order. The file-error group precedes
// the forbidden group so "permission denied reading" (a local read
// failure) is not swallowed by the generic "permission denied".
var messagePatterns = []struct {
	class    ErrorClass
	patterns []string
}{
	{ClassInvalidRequest, []string{"invalid argument", "invalid request", "400"}},
	{ClassUnauthorized, []string{"api key not valid", "unauthenticated", "401"}},
	{ClassFileError, []string{"no such file", "file error", "permission denied reading"}},
	{ClassForbidden, []string{"permission denied", "forbidden", "403"}},
	{ClassNotFound, []string{"not found", "404"}},
	{ClassRateLimited, []string{"rate limit", "quota exceeded", "resource exhausted", "429"}},
	{ClassContentFiltered, []string{"safety", "blocked", "content filtered", "prohibited content"}},
	{ClassServerError, []string{"internal error", "unavailable", "overloaded", "500", "502", "503", "504"}},
}

func classFromMessage(msg string) ErrorClass {
	lower := strings.ToLower(msg)
	for _, group := range messagePatterns {
		for _, p := range group.patterns {
			if strings.Contains(lower, p) {
				return group.class
			}
		}
	}
	return ClassUnknown
}
