// Package cli provides output formatting for the helpline command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAskResult writes a best-answer response to w in the given format.
func WriteAskResult(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if !resp.Matched {
		fmt.Fprintf(w, "\nNo FAQ matched %q. Route this query to an agent or a generative fallback.\n", resp.Query)
		return nil
	}
	fmt.Fprintf(w, "\nQ: %s\n", resp.Question)
	fmt.Fprintf(w, "A: %s\n", resp.Answer)
	fmt.Fprintf(w, "(category: %s, score: %.4f)\n", resp.Category, resp.Score)
	return nil
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, resp *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", resp.Total, resp.QueryTime)
	for rank, m := range resp.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | Category: %s\n", rank+1, m.Score, m.FAQ.Category)
		fmt.Fprintf(w, "Q: %s\n", m.FAQ.Question)
		fmt.Fprintf(w, "A: %s\n", Truncate(m.FAQ.Answer, 200))
		fmt.Fprintln(w)
	}
	return nil
}

// Truncate truncates s to at most maxLen bytes and appends "..." if
// truncated. The cut backs up to a rune boundary so multi-byte text
// (Devanagari answers, for instance) is never split mid-sequence.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
