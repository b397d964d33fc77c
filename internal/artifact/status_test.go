package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStat(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "movie_list.json")
	if err := os.WriteFile(present, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "similarity.bin")

	got, err := Stat(present, "", missing)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d statuses, want 2 (empty path skipped)", len(got))
	}
	if !got[0].Exists || got[0].Bytes != 5 || got[0].ModTime.IsZero() {
		t.Errorf("present file: %+v", got[0])
	}
	if got[1].Exists || got[1].Bytes != 0 {
		t.Errorf("missing file: %+v", got[1])
	}
	if total := DiskUsageBytes(got); total != 5 {
		t.Errorf("DiskUsageBytes = %d, want 5", total)
	}
}
