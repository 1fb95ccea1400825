// Package vectorstore provides similarity search over embedded text chunks.
//
// Two providers are available: MilvusStore for a remote Milvus collection and
// BadgerStore, an embedded store that keeps vectors in Badger and scores them
// by brute-force cosine similarity.
package vectorstore

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector does not match the store.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is one similarity search result.
type Hit struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Store searches stored chunks by vector similarity.
type Store interface {
	// Search returns up to k hits, most similar first.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Close() error
}

// Document is a chunk to store.
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Vector   []float32      `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
