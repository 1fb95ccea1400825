package nlp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soundprediction/multirag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyClient fails its first failUntilCall calls
type flakyClient struct {
	callCount     int
	failUntilCall int
	errorToReturn error
}

func (m *flakyClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	m.callCount++
	if m.callCount <= m.failUntilCall {
		return nil, m.errorToReturn
	}
	return &types.Response{Content: "success"}, nil
}

func (m *flakyClient) ChatJSON(ctx context.Context, messages []types.Message) (*types.Response, error) {
	m.callCount++
	if m.callCount <= m.failUntilCall {
		return nil, m.errorToReturn
	}
	return &types.Response{Content: `{"status": "success"}`}, nil
}

func (m *flakyClient) Close() error {
	return nil
}

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      10 * time.Millisecond,
		MaxDelay:          100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

var testMessages = []types.Message{{Role: RoleUser, Content: "test"}}

func TestRetryClient_SuccessOnFirstAttempt(t *testing.T) {
	mock := &flakyClient{}
	resp, err := NewRetryClient(mock, fastRetry(), nil).Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Content)
	assert.Equal(t, 1, mock.callCount)
}

func TestRetryClient_SuccessAfterRetries(t *testing.T) {
	mock := &flakyClient{failUntilCall: 2, errorToReturn: errors.New("500 internal server error")}

	start := time.Now()
	resp, err := NewRetryClient(mock, fastRetry(), nil).Chat(context.Background(), testMessages)
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Content)
	assert.Equal(t, 3, mock.callCount)
	// 10ms + 20ms of backoff
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRetryClient_FailAfterMaxRetries(t *testing.T) {
	mock := &flakyClient{failUntilCall: 10, errorToReturn: errors.New("503 service unavailable")}

	_, err := NewRetryClient(mock, fastRetry(), nil).ChatJSON(context.Background(), testMessages)
	require.Error(t, err)
	assert.Equal(t, 4, mock.callCount)
	assert.ErrorIs(t, err, mock.errorToReturn)
}

func TestRetryClient_NonRetryableError(t *testing.T) {
	mock := &flakyClient{failUntilCall: 10, errorToReturn: &StatusError{StatusCode: 400, Err: errors.New("bad request")}}

	_, err := NewRetryClient(mock, fastRetry(), nil).Chat(context.Background(), testMessages)
	require.Error(t, err)
	assert.Equal(t, 1, mock.callCount)
}

func TestRetryClient_RateLimitError(t *testing.T) {
	mock := &flakyClient{failUntilCall: 2, errorToReturn: NewRateLimitError("rate limit exceeded")}

	resp, err := NewRetryClient(mock, fastRetry(), nil).Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Content)
	assert.Equal(t, 3, mock.callCount)
}

func TestRetryClient_ContextCancellation(t *testing.T) {
	mock := &flakyClient{failUntilCall: 10, errorToReturn: errors.New("503 service unavailable")}
	cfg := fastRetry()
	cfg.InitialDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewRetryClient(mock, cfg, nil).Chat(ctx, testMessages)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.callCount)
}

func TestRetryClient_CalculateDelay(t *testing.T) {
	r := NewRetryClient(&flakyClient{}, &RetryConfig{
		MaxRetries:        5,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          300 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}, nil)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(3))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", NewRateLimitError(), true},
		{"502 status", &StatusError{StatusCode: 502, Err: errors.New("x")}, true},
		{"401 status", &StatusError{StatusCode: 401, Err: errors.New("x")}, false},
		{"timeout text", errors.New("i/o timeout"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("invalid request"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}
