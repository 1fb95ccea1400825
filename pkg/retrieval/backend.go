// Package retrieval fans queries out to evidence backends and merges their
// answers in a deterministic order.
package retrieval

import (
	"context"
	"errors"

	"github.com/soundprediction/multirag/pkg/types"
)

// ErrBackendTimeout marks a backend call that exceeded its deadline.
var ErrBackendTimeout = errors.New("backend call timed out")

// Options are the per-call settings passed to a backend.
type Options struct {
	// TopK is the number of evidence items the backend should return.
	TopK int
}

// Backend retrieves evidence for a single query.
type Backend interface {
	Kind() types.BackendKind
	// Retrieve returns evidence in the backend's native order. Adapters set
	// Kind and the rank provenance; the coordinator adds sub-query tags.
	Retrieve(ctx context.Context, query string, opts Options) ([]types.Evidence, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc struct {
	BackendKind types.BackendKind
	Fn          func(ctx context.Context, query string, opts Options) ([]types.Evidence, error)
}

func (f BackendFunc) Kind() types.BackendKind { return f.BackendKind }

func (f BackendFunc) Retrieve(ctx context.Context, query string, opts Options) ([]types.Evidence, error) {
	return f.Fn(ctx, query, opts)
}
