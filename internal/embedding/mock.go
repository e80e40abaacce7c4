package embedding

import (
	"context"
	"fmt"
)

// MockEmbedder is a deterministic bag-of-words embedder for tests and as a
// last-resort fallback when no real backend is available. Each word is hashed
// into a dimension bucket, so texts sharing words land close together in
// vector space while unrelated texts do not. The same text always produces
// the same vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a deterministic embedder with the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a bag-of-words vector: each lowercased word contributes
// weight to the bucket its hash selects, plus a little spillover to a second
// bucket so near-identical vocabularies score close to 1.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range SplitWords(text) {
		h := HashString(normalizeWord(word))
		emb[h%e.dimensions] += 1.0
		emb[(h/7)%e.dimensions] += 0.25
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelID identifies the mock model. The dimension is part of the identity:
// a snapshot built at one dimension is unusable at another.
func (e *MockEmbedder) ModelID() string {
	return fmt.Sprintf("mock-bow-v1-%d", e.dimensions)
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// normalizeWord lowercases ASCII letters and strips trailing punctuation so
// "Balance?" and "balance" hash to the same bucket.
func normalizeWord(w string) string {
	b := make([]byte, 0, len(w))
	for i := 0; i < len(w); i++ {
		c := w[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b = append(b, c+('a'-'A'))
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b = append(b, c)
		}
	}
	return string(b)
}
