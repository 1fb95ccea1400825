package retrieval

import (
	"context"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/multirag/pkg/alert"
	"github.com/soundprediction/multirag/pkg/config"
	"github.com/soundprediction/multirag/pkg/nlp"
	"github.com/soundprediction/multirag/pkg/types"
)

// BreakerBackend wraps a Backend with a circuit breaker. While open, calls
// fail immediately with gobreaker.ErrOpenState.
type BreakerBackend struct {
	backend Backend
	cb      *gobreaker.CircuitBreaker
}

// NewBreakerBackend creates a breaker named after the backend kind.
func NewBreakerBackend(b Backend, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) *BreakerBackend {
	settings := nlp.NewBreakerSettings("backend-"+string(b.Kind()), cfg, alerter, logger)
	return &BreakerBackend{backend: b, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerBackend) Kind() types.BackendKind { return b.backend.Kind() }

// State reports the breaker state.
func (b *BreakerBackend) State() gobreaker.State { return b.cb.State() }

// Retrieve implements Backend.
func (b *BreakerBackend) Retrieve(ctx context.Context, query string, opts Options) ([]types.Evidence, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.backend.Retrieve(ctx, query, opts)
	})
	if err != nil {
		return nil, err
	}
	return out.([]types.Evidence), nil
}
