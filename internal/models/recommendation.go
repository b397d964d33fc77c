package models

import (
	"fmt"
	"strings"
)

// Recommendation is a single recommended title with its poster URL.
type Recommendation struct {
	MovieID   int64   `json:"movie_id"`
	Title     string  `json:"title"`
	PosterURL string  `json:"poster_url"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

// RecommendRequest is the body of a recommend API call.
type RecommendRequest struct {
	Title string `json:"title"`
}

// Validate ensures the request names a title. The title itself is matched exactly,
// so surrounding whitespace is kept.
func (r *RecommendRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	return nil
}

// RecommendResponse is the response for a recommend request.
type RecommendResponse struct {
	QueryID   string            `json:"query_id"`
	Query     string            `json:"query"`
	Results   []*Recommendation `json:"results"`
	QueryTime int64             `json:"query_time_ms"`
}
