// Package retriever owns the FAQ retrieval index: building it from a corpus
// via an embedder, persisting and restoring it, and answering threshold-gated
// similarity queries.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/corpus"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/embedding"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/vector"
)

var (
	// ErrEmptyCorpus reports a build attempted with no records.
	ErrEmptyCorpus = errors.New("corpus is empty")
	// ErrEmbedding reports that the embedding collaborator failed or returned
	// malformed output; the build or query aborts and nothing is persisted.
	ErrEmbedding = errors.New("embedding failure")
	// ErrModelMismatch reports a snapshot built with a different embedding
	// model than the one now configured; the caller must rebuild.
	ErrModelMismatch = errors.New("snapshot was built with a different embedding model")
)

// Index is the retrieval index over a FAQ corpus. It owns exactly one vector
// store and one FAQ slice of equal length, index-aligned 1:1. After a
// successful Build or Restore nothing mutates, so an Index is safe for
// concurrent Search/BestAnswer calls; Build and Rebuild are full-replace
// operations and must not run concurrently with in-flight searches on the
// same instance; serve-while-rebuilding callers build a fresh Index and
// swap an atomic reference instead (see server.Server).
type Index struct {
	embedder embedding.Embedder
	paths    Paths
	logger   *zap.Logger

	store *vector.Store
	faqs  []models.FAQ
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets a logger for build/restore progress events.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// New creates an empty index bound to an embedder and snapshot paths. The
// index is not query-ready until Build, Restore, or Open succeeds.
func New(embedder embedding.Embedder, paths Paths, opts ...Option) *Index {
	ix := &Index{embedder: embedder, paths: paths}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Build embeds every record's searchable text (one embedder call per record,
// in corpus order), normalizes each vector, and populates the store. On
// success the snapshot pair is persisted before the new state becomes
// visible; on any failure the previous state and snapshot are untouched.
// A zero-norm embedding is treated as malformed embedder output and aborts
// the build.
func (ix *Index) Build(ctx context.Context, faqs []models.FAQ) error {
	if len(faqs) == 0 {
		return ErrEmptyCorpus
	}
	store := vector.NewStore()
	records := make([]models.FAQ, len(faqs))
	for i := range faqs {
		records[i] = faqs[i]
		records[i].ID = i
		vec, err := ix.embedder.Embed(ctx, records[i].SearchableText())
		if err != nil {
			return fmt.Errorf("%w: faq %d: %v", ErrEmbedding, i, err)
		}
		if err := vector.Normalize(vec); err != nil {
			return fmt.Errorf("%w: faq %d: %v", ErrEmbedding, i, err)
		}
		if err := store.Add(vec); err != nil {
			return fmt.Errorf("%w: faq %d: %v", ErrEmbedding, i, err)
		}
	}
	if err := saveSnapshot(ix.paths, store, records, ix.embedder.ModelID()); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	ix.store = store
	ix.faqs = records
	if ix.logger != nil {
		ix.logger.Info("index built",
			zap.Int("faqs", len(records)),
			zap.Int("dimension", store.Dimension()),
			zap.String("model", ix.embedder.ModelID()))
	}
	return nil
}

// Rebuild discards the current store and records and builds again from faqs.
// The previous snapshot is fully overwritten, never merged. Not incremental.
func (ix *Index) Rebuild(ctx context.Context, faqs []models.FAQ) error {
	return ix.Build(ctx, faqs)
}

// Restore loads the snapshot pair and validates it: structure, record/vector
// count equality, searchable-text consistency, and the recorded embedding
// model identifier. Structural problems surface vector.ErrCorruptState; a
// model identifier mismatch surfaces ErrModelMismatch. Either way the caller
// falls back to a fresh Build. On success the index is immediately
// query-ready.
func (ix *Index) Restore() error {
	store, faqs, err := loadSnapshot(ix.paths, ix.embedder.ModelID())
	if err != nil {
		return err
	}
	ix.store = store
	ix.faqs = faqs
	if ix.logger != nil {
		ix.logger.Info("index restored",
			zap.Int("faqs", len(faqs)),
			zap.Int("dimension", store.Dimension()))
	}
	return nil
}

// Open makes the index query-ready the way the helpline expects on startup:
// restore the persisted snapshot when one exists and validates, otherwise
// build fresh from src and persist. A corrupt or model-mismatched snapshot
// is logged and rebuilt, never served.
func (ix *Index) Open(ctx context.Context, src corpus.Source) error {
	if SnapshotExists(ix.paths) {
		err := ix.Restore()
		if err == nil {
			return nil
		}
		if ix.logger != nil {
			ix.logger.Warn("snapshot rejected, rebuilding", zap.Error(err))
		}
	}
	faqs, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	return ix.Build(ctx, faqs)
}

// Search embeds query with the same embedder used at build time, normalizes
// it, runs an exact top-k search, and filters the ranked results to those
// with score >= threshold. Results are ordered highest score first and may
// be empty. A threshold outside [-1, 1] is accepted but trivially admits
// all or none of the candidates.
func (ix *Index) Search(ctx context.Context, query string, k int, threshold float64) ([]models.Match, error) {
	if ix.store == nil {
		return nil, vector.ErrEmptyStore
	}
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrEmbedding, err)
	}
	if err := vector.Normalize(vec); err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrEmbedding, err)
	}
	results, err := ix.store.Search(vec, k)
	if err != nil {
		return nil, err
	}
	matches := make([]models.Match, 0, len(results))
	for _, r := range results {
		if r.Score < threshold {
			continue
		}
		matches = append(matches, models.Match{FAQ: ix.faqs[r.Index], Score: r.Score})
	}
	return matches, nil
}

// BestAnswer returns the single best match for query, or ok=false when the
// top candidate scores below threshold or the corpus is empty. A threshold
// miss is the normal signal for the caller to route the query to its
// generative fallback; it is never reported as an error.
func (ix *Index) BestAnswer(ctx context.Context, query string, threshold float64) (models.Match, bool, error) {
	matches, err := ix.Search(ctx, query, 1, threshold)
	if err != nil {
		if errors.Is(err, vector.ErrEmptyStore) {
			return models.Match{}, false, nil
		}
		return models.Match{}, false, err
	}
	if len(matches) == 0 {
		return models.Match{}, false, nil
	}
	return matches[0], true, nil
}

// Size returns the number of indexed FAQ records.
func (ix *Index) Size() int {
	if ix.store == nil {
		return 0
	}
	return ix.store.Len()
}

// Dimension returns the embedding dimension, or 0 before the first build.
func (ix *Index) Dimension() int {
	if ix.store == nil {
		return 0
	}
	return ix.store.Dimension()
}

// ModelID returns the embedder's model identifier.
func (ix *Index) ModelID() string {
	return ix.embedder.ModelID()
}

// FAQs returns the indexed records in positional order.
func (ix *Index) FAQs() []models.FAQ {
	return ix.faqs
}
