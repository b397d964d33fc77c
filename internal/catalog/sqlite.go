package catalog

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/movierec/internal/models"
)

// loadSQLite reads movies(row_index, movie_id, title) ordered by row_index.
func loadSQLite(path string) ([]models.Movie, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT row_index, movie_id, title FROM movies ORDER BY row_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(&m.Row, &m.ID, &m.Title); err != nil {
			return nil, err
		}
		if m.Row != len(movies) {
			return nil, fmt.Errorf("catalog row index %d is not dense (expected %d)", m.Row, len(movies))
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// WriteSQLite writes movies to a new SQLite catalog at path.
func WriteSQLite(path string, movies []models.Movie) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer db.Close()

	schema := `
	CREATE TABLE IF NOT EXISTS movies (
		row_index INTEGER PRIMARY KEY,
		movie_id INTEGER NOT NULL,
		title TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO movies (row_index, movie_id, title) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, m := range movies {
		if _, err := stmt.Exec(m.Row, m.ID, m.Title); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert movie %d: %w", m.ID, err)
		}
	}
	return tx.Commit()
}
