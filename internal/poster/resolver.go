// Package poster resolves movie IDs to displayable poster URLs. Resolution never
// fails: every lookup yields a real poster URL, a "no poster" placeholder, or an
// "error" placeholder.
package poster

import (
	"context"
	"errors"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/movierec/internal/metrics"
)

// Result labels for the three URL shapes a resolver can return.
const (
	ResultPoster   = "poster"
	ResultNoPoster = "no_poster"
	ResultError    = "error"
)

// Resolver maps a movie ID to a display URL. Implementations must not block past
// ctx and must always return a usable URL.
type Resolver interface {
	Resolve(ctx context.Context, movieID int64) string
}

// Settings configures a TMDBResolver.
type Settings struct {
	ImageBase   string
	Size        string
	NoPosterURL string
	ErrorURL    string
	// Timeout bounds each metadata lookup.
	Timeout time.Duration
	// RequestsPerSecond and Burst shape outbound calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// TMDBResolver resolves posters through the TMDB movie details endpoint, guarded by
// a circuit breaker and a token-bucket limiter.
type TMDBResolver struct {
	fetcher  MovieFetcher
	settings Settings
	cb       *gobreaker.CircuitBreaker[*MovieDetails]
	limiter  *rate.Limiter
	logger   *zap.Logger
}

var _ Resolver = (*TMDBResolver)(nil)

// NewTMDBResolver creates a resolver. logger may be nil.
func NewTMDBResolver(fetcher MovieFetcher, settings Settings, logger *zap.Logger) *TMDBResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	const cbName = "tmdb-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	r := &TMDBResolver{
		fetcher:  fetcher,
		settings: settings,
		logger:   logger,
	}
	if settings.RequestsPerSecond > 0 {
		burst := settings.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), burst)
	}
	r.cb = gobreaker.NewCircuitBreaker[*MovieDetails](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
		// A caller giving up is not a TMDB failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return r
}

// Resolve returns the poster URL for movieID, or a placeholder. Failures are logged.
func (r *TMDBResolver) Resolve(ctx context.Context, movieID int64) string {
	if r.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.settings.Timeout)
		defer cancel()
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return r.fail(movieID, err)
		}
	}

	start := time.Now()
	details, err := r.cb.Execute(func() (*MovieDetails, error) {
		return r.fetcher.GetMovieDetails(ctx, movieID)
	})
	metrics.PosterFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return r.fail(movieID, err)
	}
	if details == nil || strings.TrimSpace(details.PosterPath) == "" {
		metrics.PosterLookups.WithLabelValues(ResultNoPoster).Inc()
		return r.settings.NoPosterURL
	}
	metrics.PosterLookups.WithLabelValues(ResultPoster).Inc()
	return BuildURL(r.settings.ImageBase, r.settings.Size, details.PosterPath)
}

func (r *TMDBResolver) fail(movieID int64, err error) string {
	r.logger.Warn("error fetching poster",
		zap.Int64("movie_id", movieID),
		zap.Error(err))
	metrics.PosterLookups.WithLabelValues(ResultError).Inc()
	return r.settings.ErrorURL
}

// BuildURL joins the image base, size token and poster path with single slashes.
func BuildURL(imageBase, size, posterPath string) string {
	return strings.TrimRight(imageBase, "/") + "/" + strings.Trim(size, "/") + "/" + strings.TrimLeft(posterPath, "/")
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// StaticResolver returns the same URL for every movie. Used when no metadata API key
// is configured.
type StaticResolver struct {
	URL string
}

// Resolve returns the fixed URL.
func (s StaticResolver) Resolve(context.Context, int64) string {
	metrics.PosterLookups.WithLabelValues(ResultNoPoster).Inc()
	return s.URL
}
