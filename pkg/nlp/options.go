package nlp

import (
	"log/slog"

	"github.com/soundprediction/multirag/pkg/alert"
	"github.com/soundprediction/multirag/pkg/config"
)

type clientOptions struct {
	logger  *slog.Logger
	breaker *config.CircuitBreakerConfig
	alerter alert.Alerter
	tracker TokenRecorder
}

// ClientOption customizes NewClient.
type ClientOption func(*clientOptions)

// WithLogger sets the logger used by retry and breaker wrappers.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = logger }
}

// WithCircuitBreaker wraps every model in a circuit breaker.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig, alerter alert.Alerter) ClientOption {
	return func(o *clientOptions) {
		o.breaker = &cfg
		o.alerter = alerter
	}
}

// WithTokenRecorder records token usage for every completion.
func WithTokenRecorder(r TokenRecorder) ClientOption {
	return func(o *clientOptions) { o.tracker = r }
}
