package core

import (
	"context"
	"fmt"

	"github.com/qualitytrend/sonarscrape/internal/contract"
)

// JoinerFunc builds the full request URL for one batch of keys.
type JoinerFunc func(keys []string) string

// Batcher splits key lists into groups that fit a URL-length or key-count ceiling.
// A zero limit is not enforced.
type Batcher struct {
	MaxURLLength int
	MaxBatchSize int
}

// LengthBatcher limits batches by the length of the assembled URL.
func LengthBatcher(maxURLLength int) Batcher {
	return Batcher{MaxURLLength: maxURLLength}
}

// CountBatcher limits batches to a fixed number of keys.
func CountBatcher(maxBatchSize int) Batcher {
	return Batcher{MaxBatchSize: maxBatchSize}
}

// Split groups keys greedily in their original order. Every batch holds at least
// one key, so a key that alone exceeds the length budget still gets its own batch.
func (b Batcher) Split(keys []string, joiner JoinerFunc) [][]string {
	var batches [][]string
	var current []string
	for _, key := range keys {
		if len(current) > 0 && b.full(current, key, joiner) {
			batches = append(batches, current)
			current = nil
		}
		current = append(current, key)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// full reports whether key must start a new batch.
func (b Batcher) full(current []string, key string, joiner JoinerFunc) bool {
	if b.MaxBatchSize > 0 && len(current) >= b.MaxBatchSize {
		return true
	}
	if b.MaxURLLength > 0 && joiner != nil {
		candidate := make([]string, len(current), len(current)+1)
		copy(candidate, current)
		return len(joiner(append(candidate, key))) > b.MaxURLLength
	}
	return false
}

// Fetch issues one GET per batch and returns the bodies in batch order.
// An empty key list performs no request. The first failure aborts.
func (b Batcher) Fetch(ctx context.Context, fetcher contract.Fetcher, keys []string, joiner JoinerFunc) ([][]byte, error) {
	batches := b.Split(keys, joiner)
	if len(batches) == 0 {
		return nil, nil
	}
	bodies := make([][]byte, 0, len(batches))
	for i, batch := range batches {
		body, err := fetcher.Get(ctx, joiner(batch))
		if err != nil {
			return nil, fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}
