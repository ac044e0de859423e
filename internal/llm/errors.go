package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType categorizes model invocation failures for retry decisions.
type ErrorType int8

const (
	ErrorTypeRateLimit ErrorType = iota
	ErrorTypeTransient
	ErrorTypeEmptyResponse
	ErrorTypeAuth
	ErrorTypeBadPrompt
	ErrorTypeUnknown
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

var ErrUnknownProvider = errors.New("unknown model provider")

// Error is a classified model invocation failure.
type Error struct {
	Err        error
	Message    string
	Provider   string
	Type       ErrorType
	StatusCode int
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s model error (%s): %s: %v", e.Provider, e.Type, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s model error (%s): %s", e.Provider, e.Type, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s model error (%s): %v", e.Provider, e.Type, e.Err)
	default:
		return fmt.Sprintf("%s model error (%s): status %d", e.Provider, e.Type, e.StatusCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether another attempt may succeed.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt:
		return false
	default:
		return true
	}
}

// IsRetryable reports whether err is a model error worth retrying.
// Unclassified errors and context cancellation are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return false
}

// TypeOf returns the classified type of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

func emptyResponse(provider string) *Error {
	return &Error{Provider: provider, Type: ErrorTypeEmptyResponse, Message: "empty reply"}
}

// classifyStatus maps an HTTP status reported by a provider SDK.
func classifyStatus(provider string, status int, err error) *Error {
	e := &Error{Provider: provider, StatusCode: status, Err: err}
	switch {
	case status == 401 || status == 403:
		e.Type = ErrorTypeAuth
	case status == 429:
		e.Type = ErrorTypeRateLimit
	case status == 400 || status == 404 || status == 413 || status == 422:
		e.Type = ErrorTypeBadPrompt
	case status >= 500:
		e.Type = ErrorTypeTransient
	default:
		e.Type = ErrorTypeUnknown
	}
	return e
}

// classify maps an error without a status code, falling back on its text.
func classify(provider string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: provider, Type: ErrorTypeTransient, Err: err, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Provider: provider, Type: ErrorTypeUnknown, Err: err, Message: "request canceled"}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "eof"),
		strings.Contains(msg, "reset"),
		strings.Contains(msg, "temporar"):
		return &Error{Provider: provider, Type: ErrorTypeTransient, Err: err}
	case strings.Contains(msg, "rate"), strings.Contains(msg, "quota"):
		return &Error{Provider: provider, Type: ErrorTypeRateLimit, Err: err}
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "api key"):
		return &Error{Provider: provider, Type: ErrorTypeAuth, Err: err}
	}
	return &Error{Provider: provider, Type: ErrorTypeUnknown, Err: err}
}
