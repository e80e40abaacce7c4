// Package storage defines the persistence interface for the managed FAQ
// corpus. The database is the system of record; the retrieval index is
// always rebuildable from it.
package storage

import (
	"context"
	"errors"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
)

// ErrNotFound reports a lookup for a FAQ key that does not exist.
var ErrNotFound = errors.New("faq not found")

// Storage defines FAQ persistence operations.
type Storage interface {
	CreateFAQ(ctx context.Context, faq *models.FAQEntry) error
	GetFAQ(ctx context.Context, key string) (*models.FAQEntry, error)
	UpdateFAQ(ctx context.Context, faq *models.FAQEntry) error
	DeleteFAQ(ctx context.Context, key string) error
	ListFAQs(ctx context.Context, offset, limit int) ([]*models.FAQEntry, error)
	CountFAQs(ctx context.Context) (int64, error)

	// Corpus returns every FAQ in stable insertion order with positional
	// IDs assigned, ready for an index build.
	Corpus(ctx context.Context) ([]models.FAQ, error)

	Close() error
}
