package nlp

import (
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Common LLM client errors
var (
	// ErrRateLimit indicates the rate limit has been exceeded
	ErrRateLimit = errors.New("rate limit exceeded. Please try again later")

	// ErrEmptyResponse indicates the LLM returned an empty response
	ErrEmptyResponse = errors.New("the LLM returned an empty response")

	// ErrNoProviders indicates a router was built without any model
	ErrNoProviders = errors.New("no providers configured")
)

// RateLimitError represents a rate limit error with optional custom message
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return ErrRateLimit.Error()
	}
	return e.Message
}

// Is reports a match against any RateLimitError or ErrRateLimit.
func (e *RateLimitError) Is(target error) bool {
	if target == ErrRateLimit {
		return true
	}
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new rate limit error with optional custom message
func NewRateLimitError(message ...string) *RateLimitError {
	err := &RateLimitError{}
	if len(message) > 0 {
		err.Message = message[0]
	}
	return err
}

// StatusError carries the HTTP status returned by a provider.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the provider status code.
func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// classifyOpenAIError converts go-openai errors into the package error types.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return NewRateLimitError(apiErr.Message)
		}
		if apiErr.HTTPStatusCode > 0 {
			return &StatusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return NewRateLimitError(reqErr.Error())
		}
		if reqErr.HTTPStatusCode > 0 {
			return &StatusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
		}
	}
	return err
}
