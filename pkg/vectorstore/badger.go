package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/soundprediction/multirag/pkg/utils"
)

const docPrefix = "doc:"

// BadgerStore keeps documents in an embedded Badger database and answers
// searches with brute-force cosine similarity.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadgerStore opens (or creates) a store at path. An empty path opens an
// in-memory store.
func OpenBadgerStore(path string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Upsert writes documents, replacing any with the same ID.
func (s *BadgerStore) Upsert(ctx context.Context, docs []Document) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.ID == "" {
			return fmt.Errorf("document id is required")
		}
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to encode document %s: %w", d.ID, err)
		}
		if err := wb.Set([]byte(docPrefix+d.ID), data); err != nil {
			return fmt.Errorf("failed to write document %s: %w", d.ID, err)
		}
	}
	return wb.Flush()
}

// Delete removes documents by ID.
func (s *BadgerStore) Delete(ctx context.Context, ids ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete([]byte(docPrefix + id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored documents.
func (s *BadgerStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(docPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Search scans every document and returns the k most similar.
// Documents with a different dimension are skipped.
func (s *BadgerStore) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}

	var docs []Document
	var scores []float64
	skipped := 0

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(docPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var d Document
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			}); err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}
			if len(d.Vector) != len(vector) {
				skipped++
				continue
			}
			docs = append(docs, d)
			scores = append(scores, utils.CosineSimilarity(vector, d.Vector))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger search failed: %w", err)
	}
	if skipped > 0 {
		s.logger.Warn("Skipped documents with mismatched dimension", "skipped", skipped, "dimension", len(vector))
	}

	idx := utils.TopKIndicesByScore(scores, k)
	hits := make([]Hit, len(idx))
	for i, j := range idx {
		hits[i] = Hit{ID: docs[j].ID, Text: docs[j].Text, Score: scores[j], Metadata: docs[j].Metadata}
	}
	return hits, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
