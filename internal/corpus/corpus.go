// Package corpus loads FAQ records from their sources and validates them.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
)

// Source yields the full FAQ corpus in a stable order. Loading is a full
// snapshot; there is no incremental form. Index builds always consume the
// whole corpus.
type Source interface {
	Load(ctx context.Context) ([]models.FAQ, error)
}

// Assign validates faqs and assigns positional IDs (0-based, in input order).
// IDs are never reused or reassigned; a rebuild starts numbering from zero
// again over the new snapshot.
func Assign(faqs []models.FAQ) ([]models.FAQ, error) {
	out := make([]models.FAQ, len(faqs))
	for i := range faqs {
		if err := faqs[i].Validate(); err != nil {
			return nil, fmt.Errorf("faq %d: %w", i, err)
		}
		out[i] = faqs[i]
		out[i].ID = i
	}
	return out, nil
}

// FileSource reads the corpus from a JSON file: an array of objects with
// question, variations, answer, and category fields.
type FileSource struct {
	Path string
}

// NewFileSource creates a source reading from the JSON file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads, parses, and validates the file, assigning positional IDs.
func (s *FileSource) Load(ctx context.Context) ([]models.FAQ, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	var faqs []models.FAQ
	if err := json.Unmarshal(data, &faqs); err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", s.Path, err)
	}
	return Assign(faqs)
}

// Static wraps an in-memory FAQ slice as a Source. Useful for tests and for
// rebuild paths that already hold the records.
type Static []models.FAQ

// Load validates the records and assigns positional IDs.
func (s Static) Load(ctx context.Context) ([]models.FAQ, error) {
	return Assign(s)
}
