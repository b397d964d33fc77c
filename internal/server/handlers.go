package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/artifact"
	"github.com/hyperjump/movierec/internal/keyword"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/recommend"
)

const (
	maxSearchLimit  = 100
	suggestionCount = 5
)

type pageData struct {
	Titles      []string
	Selected    string
	Results     []*models.Recommendation
	Error       string
	Suggestions []string
}

type notFoundResponse struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	data := pageData{
		Titles:   s.engine.Catalog().Titles(),
		Selected: title,
	}
	status := http.StatusOK

	if strings.TrimSpace(title) != "" {
		resp, err := s.engine.Recommend(r.Context(), title)
		switch {
		case err == nil:
			data.Results = resp.Results
		case errors.Is(err, recommend.ErrTitleNotFound):
			status = http.StatusNotFound
			data.Error = fmt.Sprintf("%q is not in the catalog.", title)
			data.Suggestions = s.suggest(r.Context(), title)
		default:
			s.logger.Error("recommend failed", zap.String("title", title), zap.Error(err))
			status = http.StatusInternalServerError
			data.Error = "Could not compute recommendations."
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	titles := s.engine.Catalog().Titles()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(titles),
		"titles": titles,
	})
}

func (s *Server) handleSearchMovies(w http.ResponseWriter, r *http.Request) {
	if s.titles == nil {
		s.respondError(w, http.StatusNotImplemented, "title search not enabled")
		return
	}
	q := r.URL.Query().Get("q")
	limit := keyword.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := s.titles.Search(r.Context(), q, limit)
	if err != nil {
		s.logger.Error("title search failed", zap.String("query", q), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []*keyword.TitleMatch{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"results": results,
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.recommend(w, r, req.Title)
}

func (s *Server) handleRecommendQuery(w http.ResponseWriter, r *http.Request) {
	req := models.RecommendRequest{Title: r.URL.Query().Get("title")}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.recommend(w, r, req.Title)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request, title string) {
	s.logger.Debug("recommend request", zap.String("title", title))
	resp, err := s.engine.Recommend(r.Context(), title)
	if err != nil {
		if errors.Is(err, recommend.ErrTitleNotFound) {
			s.respondJSON(w, http.StatusNotFound, notFoundResponse{
				Error:       err.Error(),
				Suggestions: s.suggest(r.Context(), title),
			})
			return
		}
		s.logger.Error("recommend failed", zap.String("title", title), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.config
	files, err := artifact.Stat(cfg.Artifacts.CatalogPath, cfg.Artifacts.SimilarityPath)
	if err != nil {
		s.logger.Error("status: stat artifacts failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	posterSource := "static"
	if cfg.Poster.APIKey != "" {
		posterSource = "tmdb"
	}
	resp := map[string]interface{}{
		"movies":           s.engine.Catalog().Len(),
		"duplicate_titles": len(s.engine.Catalog().Duplicates()),
		"artifacts":        files,
		"disk_usage_bytes": artifact.DiskUsageBytes(files),
	}
	if s.titles != nil {
		if n, err := s.titles.DocCount(); err == nil {
			resp["title_index_docs"] = n
		}
	}
	resp["config"] = map[string]interface{}{
		"recommend_count": s.engine.Count(),
		"workers":         cfg.Recommend.Workers,
		"strict_self":     cfg.Recommend.StrictSelf,
		"validate_matrix": cfg.Recommend.ValidateMatrix,
		"poster_source":   posterSource,
		"poster_size":     cfg.Poster.Size,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// suggest returns close catalog titles, or nil when search is disabled or fails.
func (s *Server) suggest(ctx context.Context, title string) []string {
	if s.titles == nil {
		return nil
	}
	suggestions, err := s.titles.Suggest(ctx, title, suggestionCount)
	if err != nil {
		s.logger.Warn("suggest failed", zap.String("title", title), zap.Error(err))
		return nil
	}
	return suggestions
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
