package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/hyperjump/movierec/internal/models"
)

// columnLayout is a data frame exported column-wise: {"movie_id": {"0": 19995}, "title": {"0": "Avatar"}}.
type columnLayout struct {
	MovieID map[string]int64  `json:"movie_id"`
	Title   map[string]string `json:"title"`
}

type record struct {
	MovieID int64  `json:"movie_id"`
	Title   string `json:"title"`
}

func loadJSON(path string) ([]models.Movie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) ([]models.Movie, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	if trimmed[0] == '[' {
		var records []record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to parse catalog records: %w", err)
		}
		movies := make([]models.Movie, len(records))
		for i, r := range records {
			movies[i] = models.Movie{ID: r.MovieID, Title: r.Title, Row: i}
		}
		return movies, nil
	}

	var cols columnLayout
	if err := json.Unmarshal(trimmed, &cols); err != nil {
		return nil, fmt.Errorf("failed to parse catalog columns: %w", err)
	}
	if len(cols.MovieID) != len(cols.Title) {
		return nil, fmt.Errorf("catalog columns differ in length: movie_id=%d title=%d", len(cols.MovieID), len(cols.Title))
	}
	movies := make([]models.Movie, len(cols.Title))
	filled := make([]bool, len(cols.Title))
	for key, title := range cols.Title {
		row, err := strconv.Atoi(key)
		if err != nil || row < 0 || row >= len(movies) {
			return nil, fmt.Errorf("catalog row index %q is not dense", key)
		}
		id, ok := cols.MovieID[key]
		if !ok {
			return nil, fmt.Errorf("catalog row %d has no movie_id", row)
		}
		movies[row] = models.Movie{ID: id, Title: title, Row: row}
		filled[row] = true
	}
	for row, ok := range filled {
		if !ok {
			return nil, fmt.Errorf("catalog row %d is missing", row)
		}
	}
	return movies, nil
}
