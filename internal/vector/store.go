// Package vector provides an exact brute-force vector store over unit-normalized
// embeddings. Similarity is the raw inner product, which equals cosine similarity
// because every stored vector (and every query) is L2-normalized first.
package vector

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDimensionMismatch reports a vector whose length disagrees with the
	// store's fixed dimension. Fatal to the build or insert; not recoverable
	// without fixing the embedding source.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrDegenerateVector reports a zero-norm vector that cannot be normalized.
	ErrDegenerateVector = errors.New("zero-norm vector cannot be normalized")
	// ErrEmptyStore reports a search against a store with no vectors.
	ErrEmptyStore = errors.New("vector store is empty")
	// ErrCorruptState reports persisted data that failed structural validation.
	ErrCorruptState = errors.New("corrupt vector store state")
)

// Store holds unit-normalized vectors and answers exact top-k inner-product
// queries by brute force, O(n*d) per query. Exactness is required by the
// similarity contract; corpus sizes here are small (tens to low thousands),
// so no approximate structure is used. The dimension is fixed by the first
// Add; every later vector must match it.
type Store struct {
	dimension int
	vectors   [][]float32
	mu        sync.RWMutex
}

// NewStore creates an empty store. The dimension is set by the first Add.
func NewStore() *Store {
	return &Store{}
}

// Result is a single search hit: the position of the stored vector and its
// inner-product score against the query.
type Result struct {
	Index int
	Score float64
}

// Add appends a copy of vec. The first insert fixes the store dimension;
// any later vector of a different length fails with ErrDimensionMismatch.
func (s *Store) Add(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = len(vec)
	} else if len(vec) != s.dimension {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), s.dimension)
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	s.vectors = append(s.vectors, cp)
	return nil
}

// Search computes the inner product of query against every stored vector and
// returns the k highest-scoring results sorted by score descending, ties
// broken by ascending index so the order is deterministic. If k exceeds the
// number of stored vectors, all of them are returned. Searching an empty
// store fails with ErrEmptyStore; k <= 0 returns no results.
func (s *Store) Search(query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.vectors) == 0 {
		return nil, ErrEmptyStore
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, store has %d", ErrDimensionMismatch, len(query), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	results := make([]Result, len(s.vectors))
	for i, vec := range s.vectors {
		var dot float64
		for j := range vec {
			dot += float64(query[j]) * float64(vec[j])
		}
		results[i] = Result{Index: i, Score: dot}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Dimension returns the fixed vector dimension, or 0 before the first Add.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}
