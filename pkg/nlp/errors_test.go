package nlp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitError(t *testing.T) {
	t.Run("default message", func(t *testing.T) {
		err := NewRateLimitError()
		assert.Equal(t, "rate limit exceeded. Please try again later", err.Error())
	})

	t.Run("custom message", func(t *testing.T) {
		err := NewRateLimitError("slow down")
		assert.Equal(t, "slow down", err.Error())
	})

	t.Run("matches sentinel through wrapping", func(t *testing.T) {
		err := fmt.Errorf("chat: %w", NewRateLimitError())
		assert.True(t, errors.Is(err, ErrRateLimit))
		assert.True(t, errors.Is(err, &RateLimitError{}))
	})
}

func TestClassifyOpenAIError(t *testing.T) {
	t.Run("429 becomes rate limit", func(t *testing.T) {
		err := classifyOpenAIError(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "quota"})
		assert.ErrorIs(t, err, ErrRateLimit)
	})

	t.Run("5xx keeps status", func(t *testing.T) {
		err := classifyOpenAIError(&openai.APIError{HTTPStatusCode: http.StatusBadGateway, Message: "upstream"})
		var statusErr *StatusError
		assert.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadGateway, statusErr.HTTPStatusCode())
		assert.True(t, isRetryableError(err))
	})

	t.Run("other errors pass through", func(t *testing.T) {
		base := errors.New("dial tcp: refused")
		assert.Equal(t, base, classifyOpenAIError(base))
	})
}
