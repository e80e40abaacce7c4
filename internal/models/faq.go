// Package models defines core data structures for FAQ entries, queries, and matches.
package models

import (
	"fmt"
	"strings"
	"time"
)

// FAQ is a single corpus entry: a canonical question, alternate phrasings, and
// the canned answer returned on a match. ID is the entry's position in the
// corpus (0-based), assigned at load time and never reused or reassigned; the
// vector at position i in the index always belongs to the FAQ with ID i.
type FAQ struct {
	ID         int      `json:"id"`
	Question   string   `json:"question"`
	Variations []string `json:"variations,omitempty"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category"`
}

// SearchableText returns the text that is embedded for this entry: the
// question followed by all variations, space-joined. It must always be
// reproducible from Question and Variations; persisted copies are validated
// against this on load because it is the text that was actually embedded.
func (f *FAQ) SearchableText() string {
	if len(f.Variations) == 0 {
		return f.Question
	}
	parts := make([]string, 0, len(f.Variations)+1)
	parts = append(parts, f.Question)
	parts = append(parts, f.Variations...)
	return strings.Join(parts, " ")
}

// Validate checks the required fields. ID is not checked here; it is assigned
// positionally by the corpus loader.
func (f *FAQ) Validate() error {
	if strings.TrimSpace(f.Question) == "" {
		return fmt.Errorf("faq question cannot be empty")
	}
	if strings.TrimSpace(f.Answer) == "" {
		return fmt.Errorf("faq answer cannot be empty")
	}
	if strings.TrimSpace(f.Category) == "" {
		return fmt.Errorf("faq category cannot be empty")
	}
	return nil
}

// FAQEntry is a stored FAQ row with its storage key and timestamps. Entries
// live in the FAQ store (admin surface); a corpus snapshot converts them into
// positional FAQ records for index builds.
type FAQEntry struct {
	Key        string    `json:"key" db:"key"`
	Question   string    `json:"question" db:"question"`
	Variations []string  `json:"variations,omitempty" db:"variations"`
	Answer     string    `json:"answer" db:"answer"`
	Category   string    `json:"category" db:"category"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// FAQ converts the entry to a corpus record with the given positional ID.
func (e *FAQEntry) FAQ(id int) FAQ {
	return FAQ{
		ID:         id,
		Question:   e.Question,
		Variations: e.Variations,
		Answer:     e.Answer,
		Category:   e.Category,
	}
}

// Match is a single retrieval hit with its cosine similarity score.
type Match struct {
	FAQ   FAQ     `json:"faq"`
	Score float64 `json:"score"`
}
