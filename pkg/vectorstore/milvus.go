package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/soundprediction/multirag/pkg/config"
)

// milvusSearcher is the part of client.Client the store uses.
type milvusSearcher interface {
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string,
		vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int,
		sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	Close() error
}

// MilvusStore searches a Milvus collection holding a text field and a float
// vector field.
type MilvusStore struct {
	client      milvusSearcher
	collection  string
	textField   string
	vectorField string
	metric      entity.MetricType
}

// NewMilvusStore connects to Milvus and loads the configured collection.
func NewMilvusStore(ctx context.Context, cfg config.VectorConfig) (*MilvusStore, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", cfg.Address, err)
	}

	has, err := c.HasCollection(ctx, cfg.Collection)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to check milvus collection %q: %w", cfg.Collection, err)
	}
	if !has {
		_ = c.Close()
		return nil, fmt.Errorf("milvus collection %q does not exist", cfg.Collection)
	}
	if err := c.LoadCollection(ctx, cfg.Collection, false); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to load milvus collection %q: %w", cfg.Collection, err)
	}

	return newMilvusStore(c, cfg), nil
}

func newMilvusStore(c milvusSearcher, cfg config.VectorConfig) *MilvusStore {
	s := &MilvusStore{
		client:      c,
		collection:  cfg.Collection,
		textField:   cfg.TextField,
		vectorField: cfg.VectorField,
		metric:      entity.MetricType(strings.ToUpper(cfg.Metric)),
	}
	if s.textField == "" {
		s.textField = "text"
	}
	if s.vectorField == "" {
		s.vectorField = "vector"
	}
	if s.metric == "" {
		s.metric = entity.COSINE
	}
	return s
}

// Search runs a top-k similarity search and returns the text field of each hit.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, err
	}

	results, err := s.client.Search(ctx, s.collection, nil, "", []string{s.textField},
		[]entity.Vector{entity.FloatVector(vector)}, s.vectorField, s.metric, k, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(results) == 0 {
		return []Hit{}, nil
	}

	res := results[0]
	if res.Err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", res.Err)
	}
	textCol := res.Fields.GetColumn(s.textField)
	if textCol == nil {
		return nil, fmt.Errorf("milvus result has no %q field", s.textField)
	}

	hits := make([]Hit, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		text, err := textCol.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("milvus result row %d: %w", i, err)
		}
		hit := Hit{Text: text, Metadata: map[string]any{"collection": s.collection}}
		if i < len(res.Scores) {
			hit.Score = float64(res.Scores[i])
		}
		if res.IDs != nil {
			if id, err := res.IDs.Get(i); err == nil {
				hit.ID = fmt.Sprint(id)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close closes the Milvus connection.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}
