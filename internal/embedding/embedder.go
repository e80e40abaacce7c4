// Package embedding provides text embedding backends (OpenAI, ONNX, mock) and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must return a
// constant dimension across calls for a given model; returned vectors are raw
// model output and are not guaranteed to be unit-normalized; the retrieval
// layer normalizes before storing or comparing. Retry policy for transient
// backend failures belongs to the implementation; callers never retry.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ModelID identifies the model and version. It is recorded in index
	// snapshots so that a restore against a different model is rejected
	// instead of silently returning degraded matches.
	ModelID() string
	Close() error
}
