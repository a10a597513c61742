package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorType says which part of the provider setup an error points at.
type ErrorType string

const (
	ErrorTypeNone      ErrorType = ""
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeCanceled  ErrorType = "canceled"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// ErrEmbeddingsUnsupported is returned by providers without an embeddings API.
var ErrEmbeddingsUnsupported = errors.New("provider does not support embeddings")

// Error is a classified provider error.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
	Model      string
	Endpoint   string // only the host is rendered
}

func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	if host := endpointHost(e.Endpoint); host != "" {
		parts = append(parts, "endpoint="+host)
	}
	parts = append(parts, e.Message)

	msg := strings.Join(parts, " ")
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable satisfies retry.RetryableError.
func (e *Error) IsRetryable() bool { return e.Retryable }

// NewError creates a classified error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{Type: errType, Message: message, Retryable: retryable, Cause: cause}
}

func endpointHost(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}

// statusCodePattern finds a standalone 3-digit HTTP status in error text.
var statusCodePattern = regexp.MustCompile(`\b([45]\d\d)\b`)

func extractStatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}
	if m := statusCodePattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// classification is one row of the ordered rule table used by ClassifyError.
type classification struct {
	matches   func(status int, lower string) bool
	errType   ErrorType
	message   string
	retryable bool
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var classifications = []classification{
	{
		matches: func(status int, lower string) bool {
			return status == 401 || status == 403 || containsAny(lower, "unauthorized", "invalid api key", "invalid x-api-key")
		},
		errType: ErrorTypeAuth, message: "authentication failed",
	},
	{
		matches: func(_ int, lower string) bool {
			return strings.Contains(lower, "model") && containsAny(lower, "not found", "does not exist")
		},
		errType: ErrorTypeModel, message: "model not found",
	},
	{
		matches: func(status int, _ string) bool { return status == 404 },
		errType: ErrorTypeEndpoint, message: "endpoint not found",
	},
	{
		matches: func(status int, lower string) bool {
			return status == 429 || containsAny(lower, "rate limit", "too many requests")
		},
		errType: ErrorTypeRateLimit, message: "rate limited", retryable: true,
	},
	{
		matches: func(_ int, lower string) bool { return containsAny(lower, "connection refused", "no such host") },
		errType: ErrorTypeEndpoint, message: "connection failed", retryable: true,
	},
	{
		matches: func(_ int, lower string) bool { return containsAny(lower, "timeout", "deadline exceeded") },
		errType: ErrorTypeEndpoint, message: "request timeout", retryable: true,
	},
	{
		matches: func(status int, lower string) bool {
			return status >= 500 || containsAny(lower, "overloaded", "cuda error", "gpu error", "out of memory")
		},
		errType: ErrorTypeEndpoint, message: "server error", retryable: true,
	},
}

// ClassifyError maps a provider error onto an *Error. Errors that are already
// classified are returned unchanged. Context cancellation is never retryable.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	status := extractStatusCode(err)

	if errors.Is(err, context.Canceled) {
		e := NewError(ErrorTypeCanceled, "request canceled", false, err)
		e.StatusCode = status
		return e
	}

	lower := strings.ToLower(err.Error())
	for _, c := range classifications {
		if c.matches(status, lower) {
			e := NewError(c.errType, c.message, c.retryable, err)
			e.StatusCode = status
			return e
		}
	}

	e := NewError(ErrorTypeUnknown, "llm error", false, err)
	e.StatusCode = status
	return e
}

// IsRetryable reports whether err is a retryable classified error.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
