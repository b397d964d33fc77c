// Package cli provides CLI output helpers for movierec.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/movierec/internal/keyword"
	"github.com/hyperjump/movierec/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const maxTitleWidth = 60

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid --output %q (use text or json)", s)
	}
}

// WriteRecommendations writes a recommendation response to w in the given format.
func WriteRecommendations(w io.Writer, response *models.RecommendResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nTop %d recommendations for %q (%dms)\n\n",
		len(response.Results), response.Query, response.QueryTime)
	for _, rec := range response.Results {
		fmt.Fprintf(w, "%d. %s\n", rec.Rank, Truncate(rec.Title, maxTitleWidth))
		fmt.Fprintf(w, "   Score:  %.4f\n", rec.Score)
		fmt.Fprintf(w, "   Poster: %s\n", rec.PosterURL)
	}
	fmt.Fprintln(w)
	return nil
}

// PrintRecommendations prints recommendations to stdout in text format.
func PrintRecommendations(response *models.RecommendResponse) {
	_ = WriteRecommendations(os.Stdout, response, OutputText)
}

// WriteTitles writes catalog titles, one per line in text format.
func WriteTitles(w io.Writer, titles []string, format OutputFormat) error {
	if format == OutputJSON {
		if titles == nil {
			titles = []string{}
		}
		return writeJSON(w, titles)
	}
	for _, t := range titles {
		fmt.Fprintln(w, t)
	}
	return nil
}

// WriteMatches writes title search hits.
func WriteMatches(w io.Writer, matches []*keyword.TitleMatch, format OutputFormat) error {
	if format == OutputJSON {
		if matches == nil {
			matches = []*keyword.TitleMatch{}
		}
		return writeJSON(w, matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matching titles.")
		return nil
	}
	for _, m := range matches {
		marker := ""
		if m.Fuzzy {
			marker = " (fuzzy)"
		}
		fmt.Fprintf(w, "%s%s\n", m.Title, marker)
	}
	return nil
}

// WriteNotFound explains an unknown title, with suggestions when there are any.
func WriteNotFound(w io.Writer, title string, suggestions []string) {
	fmt.Fprintf(w, "Title %q is not in the catalog.\n", title)
	if len(suggestions) > 0 {
		fmt.Fprintf(w, "Did you mean: %s\n", strings.Join(suggestions, ", "))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
