package embedder

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoEmbeddings is returned when a provider answers without vectors.
var ErrNoEmbeddings = errors.New("no embeddings returned")

// Client generates vector embeddings for text.
type Client interface {
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle returns the vector for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector size, or 0 when unknown.
	Dimensions() int

	// Close cleans up any resources.
	Close() error
}

// Config holds common embedder settings.
type Config struct {
	Model      string `json:"model"`
	BatchSize  int    `json:"batch_size"`
	Dimensions int    `json:"dimensions"`
}

// embedSingle adapts a batch Embed call to a single text.
func embedSingle(ctx context.Context, c Client, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddings
	}
	return vectors[0], nil
}

func checkCount(want, got int) error {
	if want != got {
		return fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", want, got)
	}
	return nil
}
