// Package recommend provides the nearest-neighbour recommendation engine over a
// precomputed similarity matrix.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/catalog"
	"github.com/hyperjump/movierec/internal/metrics"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/poster"
	"github.com/hyperjump/movierec/internal/similarity"
)

// DefaultCount is the number of recommendations returned per query.
const DefaultCount = 5

// ErrTitleNotFound is returned when the selected title is not in the catalog.
var ErrTitleNotFound = errors.New("title not found")

// Engine answers recommendation queries. It holds only immutable state and is safe
// for concurrent use.
type Engine struct {
	catalog    *catalog.Catalog
	matrix     *similarity.Matrix
	resolver   poster.Resolver
	count      int
	workers    int
	strictSelf bool
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCount sets the number of recommendations per query.
func WithCount(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.count = n
		}
	}
}

// WithWorkers bounds the number of concurrent poster lookups per query.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithStrictSelf excludes the selected row by index rather than by skipping rank 0.
func WithStrictSelf(strict bool) EngineOption {
	return func(e *Engine) { e.strictSelf = strict }
}

// WithLogger sets a logger for query tracing.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine. The matrix dimension must equal the catalog size.
func NewEngine(c *catalog.Catalog, m *similarity.Matrix, resolver poster.Resolver, opts ...EngineOption) (*Engine, error) {
	if c == nil || m == nil {
		return nil, fmt.Errorf("catalog and matrix are required")
	}
	if c.Len() != m.Size() {
		return nil, fmt.Errorf("similarity matrix is %dx%d but catalog has %d movies", m.Size(), m.Size(), c.Len())
	}
	if resolver == nil {
		return nil, fmt.Errorf("poster resolver is required")
	}
	e := &Engine{
		catalog:  c,
		matrix:   m,
		resolver: resolver,
		count:    DefaultCount,
		workers:  DefaultCount,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Count returns the configured number of recommendations per query.
func (e *Engine) Count() int {
	return e.count
}

// Catalog returns the catalog the engine ranks over.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Rank returns up to k neighbours of title, ordered by descending score. Ties keep
// column order. The first entry of the sorted row is dropped as the self-match, so
// the matrix diagonal must be the row maximum; with strict self exclusion the
// selected row is removed by index instead.
func (e *Engine) Rank(title string, k int) ([]models.Neighbor, error) {
	movie, ok := e.catalog.Lookup(title)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTitleNotFound, title)
	}
	row, ok := e.matrix.Row(movie.Row)
	if !ok {
		return nil, fmt.Errorf("row %d missing from similarity matrix", movie.Row)
	}
	return rankRow(row, movie.Row, k, e.strictSelf), nil
}

func rankRow(row []float32, self, k int, strictSelf bool) []models.Neighbor {
	if k <= 0 {
		return nil
	}
	scored := make([]models.Neighbor, len(row))
	for j, v := range row {
		scored[j] = models.Neighbor{Row: j, Score: float64(v)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if strictSelf {
		out := scored[:0]
		for _, n := range scored {
			if n.Row != self {
				out = append(out, n)
			}
		}
		scored = out
	} else if len(scored) > 0 {
		scored = scored[1:]
	}
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// Recommend ranks neighbours of title and resolves each to a display title and
// poster URL. Poster failures surface as placeholder URLs, never as errors.
func (e *Engine) Recommend(ctx context.Context, title string) (*models.RecommendResponse, error) {
	startTime := time.Now()
	queryID := uuid.NewString()

	neighbors, err := e.Rank(title, e.count)
	if err != nil {
		if errors.Is(err, ErrTitleNotFound) {
			metrics.RecommendRequests.WithLabelValues("not_found").Inc()
		} else {
			metrics.RecommendRequests.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	results := make([]*models.Recommendation, len(neighbors))
	for i, n := range neighbors {
		movie, _ := e.catalog.Entry(n.Row)
		results[i] = &models.Recommendation{
			MovieID: movie.ID,
			Title:   movie.Title,
			Score:   n.Score,
			Rank:    i + 1,
		}
	}
	e.resolvePosters(ctx, results)

	elapsed := time.Since(startTime)
	metrics.RecommendRequests.WithLabelValues("ok").Inc()
	metrics.RecommendDuration.Observe(elapsed.Seconds())
	e.logger.Debug("recommendations computed",
		zap.String("query_id", queryID),
		zap.String("title", title),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", elapsed))

	return &models.RecommendResponse{
		QueryID:   queryID,
		Query:     title,
		Results:   results,
		QueryTime: elapsed.Milliseconds(),
	}, nil
}

// resolvePosters fills PosterURL in place using at most e.workers goroutines.
// Each goroutine writes only its own slot, so rank order is preserved.
func (e *Engine) resolvePosters(ctx context.Context, results []*models.Recommendation) {
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for _, rec := range results {
		wg.Add(1)
		sem <- struct{}{}
		go func(rec *models.Recommendation) {
			defer wg.Done()
			defer func() { <-sem }()
			rec.PosterURL = e.resolver.Resolve(ctx, rec.MovieID)
		}(rec)
	}
	wg.Wait()
}
