package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/movierec/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_columnLayout(t *testing.T) {
	path := writeFile(t, "movie_list.json", `{
		"movie_id": {"0": 19995, "1": 285, "2": 206647},
		"title": {"0": "Avatar", "1": "Pirates of the Caribbean: At World's End", "2": "Spectre"}
	}`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len=%d", c.Len())
	}
	m, ok := c.Lookup("Spectre")
	if !ok {
		t.Fatal("Spectre not found")
	}
	if m.ID != 206647 || m.Row != 2 {
		t.Errorf("got %+v", m)
	}
	titles := c.Titles()
	if titles[0] != "Avatar" || titles[2] != "Spectre" {
		t.Errorf("titles out of row order: %v", titles)
	}
}

func TestLoad_records(t *testing.T) {
	path := writeFile(t, "movies.json", `[{"movie_id": 1, "title": "A"}, {"movie_id": 2, "title": "B"}]`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := c.Entry(1)
	if !ok || m.Title != "B" || m.ID != 2 {
		t.Errorf("Entry(1)=%+v, %v", m, ok)
	}
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "  "},
		{"malformed", "{"},
		{"gap in rows", `{"movie_id": {"0": 1, "2": 3}, "title": {"0": "A", "2": "C"}}`},
		{"column length mismatch", `{"movie_id": {"0": 1}, "title": {"0": "A", "1": "B"}}`},
		{"non-numeric index", `{"movie_id": {"x": 1}, "title": {"x": "A"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "movies.json", tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatal("expected error for missing catalog")
	}
}

func TestLookup_firstMatchWins(t *testing.T) {
	c, err := New([]models.Movie{
		{ID: 10, Title: "Dup", Row: 0},
		{ID: 11, Title: "Other", Row: 1},
		{ID: 12, Title: "Dup", Row: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, ok := c.Lookup("Dup")
	if !ok || m.Row != 0 || m.ID != 10 {
		t.Errorf("Lookup(Dup)=%+v, want row 0", m)
	}
	dups := c.Duplicates()
	if len(dups) != 1 || dups[0] != "Dup" {
		t.Errorf("Duplicates()=%v", dups)
	}
}

func TestLookup_notFound(t *testing.T) {
	c, _ := New([]models.Movie{{ID: 1, Title: "Avatar", Row: 0}})
	if _, ok := c.Lookup("avatar"); ok {
		t.Error("lookup must be an exact match")
	}
	if _, ok := c.Entry(5); ok {
		t.Error("Entry out of range should report false")
	}
}

func TestNew_rowMismatch(t *testing.T) {
	if _, err := New([]models.Movie{{ID: 1, Title: "A", Row: 1}}); err == nil {
		t.Fatal("expected error when row does not match position")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	movies := []models.Movie{
		{ID: 19995, Title: "Avatar", Row: 0},
		{ID: 285, Title: "Pirates of the Caribbean: At World's End", Row: 1},
	}
	if err := WriteSQLite(path, movies); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len=%d", c.Len())
	}
	m, ok := c.Lookup("Avatar")
	if !ok || m.ID != 19995 {
		t.Errorf("Lookup(Avatar)=%+v, %v", m, ok)
	}
}

func TestMovies_returnsCopy(t *testing.T) {
	c, _ := New([]models.Movie{{ID: 1, Title: "A", Row: 0}})
	ms := c.Movies()
	ms[0].Title = "changed"
	if got, _ := c.Entry(0); got.Title != "A" {
		t.Error("Movies() must not expose internal slice")
	}
}
