package keyword

import (
	"context"
	"reflect"
	"testing"

	"github.com/hyperjump/movierec/internal/models"
)

func testIndex(t *testing.T) *TitleIndex {
	t.Helper()
	titles := []string{"Avatar", "Avengers: Endgame", "The Dark Knight", "The Dark Knight Rises", "Spectre", "Up"}
	movies := make([]models.Movie, len(titles))
	for i, title := range titles {
		movies[i] = models.Movie{ID: int64(i + 1), Title: title, Row: i}
	}
	idx, err := NewTitleIndex(movies)
	if err != nil {
		t.Fatalf("NewTitleIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func titlesOf(matches []*TitleMatch) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Title
	}
	return out
}

func TestTitleIndex_DocCount(t *testing.T) {
	idx := testIndex(t)
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("DocCount = %d, want 6", n)
	}
}

func TestTitleIndex_SearchPrefix(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	got, err := idx.Search(ctx, "aveng", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(titlesOf(got), []string{"Avengers: Endgame"}) {
		t.Errorf("Search(aveng) = %v", titlesOf(got))
	}
	if got[0].Row != 1 || got[0].Fuzzy {
		t.Errorf("unexpected match %+v", got[0])
	}
}

func TestTitleIndex_SearchAllTermsRequired(t *testing.T) {
	idx := testIndex(t)
	got, err := idx.Search(context.Background(), "Dark kni", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Search(dark kni) = %v, want both Dark Knight titles", titlesOf(got))
	}
	for _, m := range got {
		if m.Title != "The Dark Knight" && m.Title != "The Dark Knight Rises" {
			t.Errorf("unexpected title %q", m.Title)
		}
	}
}

func TestTitleIndex_SearchKeepsShortWords(t *testing.T) {
	idx := testIndex(t)
	got, err := idx.Search(context.Background(), "up", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Up" {
		t.Errorf("Search(up) = %v", titlesOf(got))
	}

	got, err = idx.Search(context.Background(), "the", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("limit not applied: %v", titlesOf(got))
	}
}

func TestTitleIndex_SearchFuzzyFallback(t *testing.T) {
	idx := testIndex(t)
	got, err := idx.Search(context.Background(), "avatr", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0].Title != "Avatar" {
		t.Fatalf("Search(avatr) = %v, want Avatar first", titlesOf(got))
	}
	if !got[0].Fuzzy {
		t.Error("fallback match should be marked fuzzy")
	}
}

func TestTitleIndex_SearchEmpty(t *testing.T) {
	idx := testIndex(t)
	for _, q := range []string{"", "   ", ":-"} {
		got, err := idx.Search(context.Background(), q, 10)
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("Search(%q) = %v, want nil", q, titlesOf(got))
		}
	}
}

func TestTitleIndex_Suggest(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	got, err := idx.Suggest(ctx, "The Dark Night", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0] != "The Dark Knight" {
		t.Errorf("Suggest(The Dark Night) = %v, want The Dark Knight first", got)
	}
	if len(got) > 2 {
		t.Errorf("limit not applied: %v", got)
	}

	got, err = idx.Suggest(ctx, "Spectr", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[0] != "Spectre" {
		t.Errorf("Suggest(Spectr) = %v", got)
	}
}

func TestNewTitleIndex_RowOutOfRange(t *testing.T) {
	_, err := NewTitleIndex([]models.Movie{{ID: 1, Title: "A", Row: 3}})
	if err == nil {
		t.Fatal("expected error for row outside catalog")
	}
}

func TestTokenizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Avengers: Endgame", []string{"avengers", "endgame"}},
		{"  Spider-Man ", []string{"spider", "man"}},
		{"Schindler's List", []string{"schindler's", "list"}},
		{"'quoted'", []string{"quoted"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if got := tokenizeQuery(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("tokenizeQuery(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
