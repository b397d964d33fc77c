// Package models defines core data structures for catalog entries and recommendations.
package models

// Movie is a catalog entry. Row is its dense 0-based position in the catalog and
// in the similarity matrix.
type Movie struct {
	ID    int64  `json:"movie_id" db:"movie_id"`
	Title string `json:"title" db:"title"`
	Row   int    `json:"row_index" db:"row_index"`
}

// Neighbor is a ranked similarity-matrix column for a selected row.
type Neighbor struct {
	Row   int
	Score float64
}
