// Package keyword provides an in-memory Bleve index over catalog titles for
// type-ahead search and "did you mean" suggestions.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/movierec/internal/models"
)

const (
	titleField    = "title"
	titleAnalyzer = "title"
	// DefaultLimit caps results when the caller passes a non-positive limit.
	DefaultLimit = 10
	// DefaultFuzziness is the edit distance allowed per term in fuzzy fallback.
	DefaultFuzziness = 2
)

// TitleMatch is one search hit.
type TitleMatch struct {
	Row   int     `json:"row_index"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
	Fuzzy bool    `json:"fuzzy,omitempty"`
}

type titleDoc struct {
	Title string `json:"title"`
}

// TitleIndex is a read-only title index built once at startup.
type TitleIndex struct {
	index  bleve.Index
	titles []string
}

// NewTitleIndex indexes every movie title under its row index.
func NewTitleIndex(movies []models.Movie) (*TitleIndex, error) {
	im := bleve.NewIndexMapping()
	// Lowercase + tokenize without stop words, so "the" and "up" stay searchable.
	if err := im.AddCustomAnalyzer(titleAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("failed to register title analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()
	titleMapping := bleve.NewTextFieldMapping()
	titleMapping.Analyzer = titleAnalyzer
	docMapping.AddFieldMappingsAt(titleField, titleMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create title index: %w", err)
	}

	titles := make([]string, len(movies))
	batch := index.NewBatch()
	for _, m := range movies {
		if m.Row < 0 || m.Row >= len(movies) {
			_ = index.Close()
			return nil, fmt.Errorf("movie %q has row %d outside [0,%d)", m.Title, m.Row, len(movies))
		}
		titles[m.Row] = m.Title
		if err := batch.Index(strconv.Itoa(m.Row), titleDoc{Title: m.Title}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index %q: %w", m.Title, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to build title index: %w", err)
	}
	return &TitleIndex{index: index, titles: titles}, nil
}

// Search returns titles matching every query term, treating the last term as a
// prefix. When nothing matches, it retries with fuzzy terms.
func (t *TitleIndex) Search(ctx context.Context, query string, limit int) ([]*TitleMatch, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	matches, err := t.run(ctx, buildPrefixQuery(terms), limit)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return matches, nil
	}

	matches, err = t.run(ctx, buildFuzzyQuery(terms, DefaultFuzziness), limit)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		m.Fuzzy = true
	}
	return matches, nil
}

// Suggest returns up to limit catalog titles close to title, nearest edit
// distance first.
func (t *TitleIndex) Suggest(ctx context.Context, title string, limit int) ([]string, error) {
	terms := tokenizeQuery(title)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates := limit * 4
	if candidates < 20 {
		candidates = 20
	}
	matches, err := t.run(ctx, buildFuzzyQuery(terms, DefaultFuzziness), candidates)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(title))
	dist := make(map[int]int, len(matches))
	for _, m := range matches {
		dist[m.Row] = LevenshteinDistance(want, strings.ToLower(m.Title))
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return dist[matches[i].Row] < dist[matches[j].Row]
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Title
	}
	return out, nil
}

func (t *TitleIndex) run(ctx context.Context, q blevequery.Query, limit int) ([]*TitleMatch, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.SortBy([]string{"-_score", "_id"})
	results, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("title search failed: %w", err)
	}
	out := make([]*TitleMatch, 0, len(results.Hits))
	for _, hit := range results.Hits {
		row, err := strconv.Atoi(hit.ID)
		if err != nil || row < 0 || row >= len(t.titles) {
			continue
		}
		out = append(out, &TitleMatch{Row: row, Title: t.titles[row], Score: hit.Score})
	}
	return out, nil
}

// Close releases the index.
func (t *TitleIndex) Close() error {
	return t.index.Close()
}

// DocCount returns the number of indexed titles.
func (t *TitleIndex) DocCount() (uint64, error) {
	return t.index.DocCount()
}

// tokenizeQuery lowercases and splits on anything that is not a letter, digit or
// inner apostrophe, mirroring the title analyzer.
func tokenizeQuery(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}

// buildPrefixQuery requires every complete term and lets the last one match as a
// prefix of a title word.
func buildPrefixQuery(terms []string) blevequery.Query {
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms[:len(terms)-1] {
		tq := bleve.NewTermQuery(term)
		tq.SetField(titleField)
		queries = append(queries, tq)
	}

	last := terms[len(terms)-1]
	exact := bleve.NewTermQuery(last)
	exact.SetField(titleField)
	exact.SetBoost(2)
	prefix := bleve.NewPrefixQuery(last)
	prefix.SetField(titleField)
	queries = append(queries, bleve.NewDisjunctionQuery(exact, prefix))

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per term.
func buildFuzzyQuery(terms []string, fuzziness int) blevequery.Query {
	if len(terms) == 1 {
		fq := bleve.NewFuzzyQuery(terms[0])
		fq.SetFuzziness(fuzziness)
		fq.SetField(titleField)
		return fq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(titleField)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}
