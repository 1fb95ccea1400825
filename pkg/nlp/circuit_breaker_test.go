package nlp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/multirag/pkg/config"
	"github.com/stretchr/testify/assert"
)

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (a *recordingAlerter) Alert(subject, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subjects = append(a.subjects, subject)
	return nil
}

func TestCircuitBreakerClient_OpensAndAlerts(t *testing.T) {
	failing := &flakyClient{failUntilCall: 100, errorToReturn: errors.New("boom")}
	alerter := &recordingAlerter{}
	cb := NewCircuitBreakerClient(failing, config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          60,
		ReadyToTripRatio: 0.5,
	}, alerter, "llm-test", nil)

	for i := 0; i < 3; i++ {
		_, err := cb.Chat(context.Background(), testMessages)
		assert.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Chat(context.Background(), testMessages)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, failing.callCount)

	alerter.mu.Lock()
	defer alerter.mu.Unlock()
	assert.Len(t, alerter.subjects, 1)
	assert.Contains(t, alerter.subjects[0], "llm-test")
}
