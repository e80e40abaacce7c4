package models

import "fmt"

// Defaults applied by Validate when a request leaves the field unset.
const (
	DefaultTopK      = 3
	DefaultThreshold = 0.6
	MaxTopK          = 100
)

// SearchQuery represents a retrieval request. Threshold is a pointer so that
// an explicit 0 (accept everything with non-negative similarity) can be told
// apart from "use the default". Values outside [-1, 1] are accepted but
// trivially admit all or none of the candidates (cosine similarity range).
type SearchQuery struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if q.TopK > MaxTopK {
		q.TopK = MaxTopK
	}
	if q.Threshold == nil {
		t := DefaultThreshold
		q.Threshold = &t
	}
	return nil
}

// AskQuery represents a best-answer request.
type AskQuery struct {
	Query     string   `json:"query"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
func (q *AskQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Threshold == nil {
		t := DefaultThreshold
		q.Threshold = &t
	}
	return nil
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []Match `json:"results"`
	Total     int     `json:"total"`
	QueryTime int64   `json:"query_time_ms"`
	Query     string  `json:"query"`
}

// AskResponse is the response for a best-answer request. Matched=false is the
// normal "no match above threshold" outcome that tells the caller to route the
// query to its generative fallback; it is never reported as an error.
type AskResponse struct {
	Matched  bool    `json:"matched"`
	Answer   string  `json:"answer,omitempty"`
	Question string  `json:"question,omitempty"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Query    string  `json:"query"`
}
