// Package server provides the HTTP API and the recommendation page for movierec.
package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/config"
	"github.com/hyperjump/movierec/internal/keyword"
	"github.com/hyperjump/movierec/internal/recommend"
)

// Server is the HTTP server for the movierec API and page.
type Server struct {
	engine *recommend.Engine
	titles *keyword.TitleIndex
	config *config.Config
	logger *zap.Logger
	page   *template.Template
	server *http.Server
}

// NewServer creates a server with the given dependencies. titles may be nil, in
// which case search and suggestions are disabled.
func NewServer(
	engine *recommend.Engine,
	titles *keyword.TitleIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: engine,
		titles: titles,
		config: cfg,
		logger: logger,
		page:   template.Must(template.New("index").Parse(indexTemplate)),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/movies", s.handleListMovies)
		r.Get("/movies/search", s.handleSearchMovies)
		r.Get("/status", s.handleStatus)
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit())
			r.Post("/recommend", s.handleRecommend)
			r.Get("/recommend", s.handleRecommendQuery)
		})
	})
	return r
}

// rateLimit limits recommend calls per client IP. A non-positive limit disables it.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	cfg := s.config.Server
	if cfg.RateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := cfg.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		cfg.RateLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
