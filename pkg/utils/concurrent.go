package utils

import (
	"context"
	"runtime"
	"sync"
)

// DefaultConcurrency is used when a caller passes a non-positive limit.
var DefaultConcurrency = runtime.NumCPU()

// MapConcurrent applies fn to every item with at most maxConcurrency calls in
// flight. Results and errors are index-aligned with items. Panics in fn are
// recovered into PanicError. Items not started before ctx is done get ctx.Err().
func MapConcurrent[T any, R any](ctx context.Context, maxConcurrency int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}

	sem := make(chan struct{}, maxConcurrency)
	results := make([]R, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()
			defer RecoverAsError(&errs[index])

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[index] = ctx.Err()
				return
			}

			results[index], errs[index] = fn(ctx, item)
		}(i, item)
	}

	wg.Wait()
	return results, errs
}

// FirstError returns the first non-nil error.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Batch splits items into chunks of at most batchSize.
func Batch[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = 10
	}

	var batches [][]T
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}
