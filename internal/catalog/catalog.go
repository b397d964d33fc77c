// Package catalog provides the immutable store of known movies, aligned with the
// similarity matrix row order.
package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hyperjump/movierec/internal/models"
)

// Catalog holds the known movies in row order. It is read-only after construction
// and safe for concurrent readers.
type Catalog struct {
	movies  []models.Movie
	byTitle map[string]int
}

// New builds a catalog from movies. Each movie's Row must equal its position.
func New(movies []models.Movie) (*Catalog, error) {
	byTitle := make(map[string]int, len(movies))
	for i, m := range movies {
		if m.Row != i {
			return nil, fmt.Errorf("movie %q has row %d at position %d", m.Title, m.Row, i)
		}
		// First match wins for duplicate titles.
		if _, ok := byTitle[m.Title]; !ok {
			byTitle[m.Title] = i
		}
	}
	return &Catalog{movies: movies, byTitle: byTitle}, nil
}

// Load reads a catalog artifact. The format is chosen by extension: .db, .sqlite and
// .sqlite3 are read as SQLite; anything else is decoded as JSON.
func Load(path string) (*Catalog, error) {
	var (
		movies []models.Movie
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		movies, err = loadSQLite(path)
	default:
		movies, err = loadJSON(path)
	}
	if err != nil {
		return nil, err
	}
	return New(movies)
}

// Len returns the number of movies.
func (c *Catalog) Len() int {
	return len(c.movies)
}

// Lookup returns the first movie whose title equals title exactly.
func (c *Catalog) Lookup(title string) (models.Movie, bool) {
	i, ok := c.byTitle[title]
	if !ok {
		return models.Movie{}, false
	}
	return c.movies[i], true
}

// Entry returns the movie at row.
func (c *Catalog) Entry(row int) (models.Movie, bool) {
	if row < 0 || row >= len(c.movies) {
		return models.Movie{}, false
	}
	return c.movies[row], true
}

// Movies returns a copy of all movies in row order.
func (c *Catalog) Movies() []models.Movie {
	return append([]models.Movie(nil), c.movies...)
}

// Titles returns all titles in row order.
func (c *Catalog) Titles() []string {
	titles := make([]string, len(c.movies))
	for i, m := range c.movies {
		titles[i] = m.Title
	}
	return titles
}

// Duplicates returns titles that occur more than once, in order of first occurrence.
func (c *Catalog) Duplicates() []string {
	seen := make(map[string]int, len(c.movies))
	var dups []string
	for _, m := range c.movies {
		seen[m.Title]++
		if seen[m.Title] == 2 {
			dups = append(dups, m.Title)
		}
	}
	return dups
}
