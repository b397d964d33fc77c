package artifact

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func newTestDownloader(t *testing.T, handler http.HandlerFunc) (*Downloader, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	dl, err := NewDownloader(server.URL+"/uc", WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("NewDownloader: %v", err)
	}
	return dl, &hits
}

func payload(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestEnsureFile_ExistingFileSkipsDownload(t *testing.T) {
	dl, hits := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	path := filepath.Join(t.TempDir(), "similarity.bin")
	if err := os.WriteFile(path, []byte("cached"), 0o644); err != nil {
		t.Fatal(err)
	}

	downloaded, err := dl.EnsureFile(context.Background(), path, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if downloaded || atomic.LoadInt32(hits) != 0 {
		t.Errorf("downloaded=%v hits=%d, want no download", downloaded, *hits)
	}
}

func TestEnsureFile_DirectDownload(t *testing.T) {
	data := payload(3*ChunkSize + 17)
	dl, _ := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/uc" || q.Get("export") != "download" || q.Get("id") != "file-1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	})
	path := filepath.Join(t.TempDir(), "nested", "similarity.bin")

	downloaded, err := dl.EnsureFile(context.Background(), path, "file-1")
	if err != nil {
		t.Fatal(err)
	}
	if !downloaded {
		t.Error("expected a download")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("downloaded %d bytes, want %d identical bytes", len(got), len(data))
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
		t.Error("temp file should be renamed away")
	}
}

func TestEnsureFile_ConfirmCookie(t *testing.T) {
	data := payload(1000)
	dl, hits := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("confirm") == "" {
			http.SetCookie(w, &http.Cookie{Name: "download_warning_13058876669334088843_abc", Value: "T0k3n", Path: "/"})
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>Google Drive can't scan this file for viruses.</html>"))
			return
		}
		if got := r.URL.Query().Get("confirm"); got != "T0k3n" {
			t.Errorf("confirm = %q, want T0k3n", got)
		}
		if c, err := r.Cookie("download_warning_13058876669334088843_abc"); err != nil || c.Value != "T0k3n" {
			t.Errorf("cookie jar did not replay warning cookie: %v", err)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	})
	path := filepath.Join(t.TempDir(), "movie_list.json")

	if _, err := dl.EnsureFile(context.Background(), path, "big"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(hits); n != 2 {
		t.Errorf("hits = %d, want 2", n)
	}
	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, data) {
		t.Error("content mismatch after confirmation")
	}
}

func TestEnsureFile_ConfirmTokenInPage(t *testing.T) {
	dl, _ := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("confirm") == "" {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<a id="uc-download-link" href="/uc?export=download&amp;confirm=x9_Z-&amp;id=big">Download anyway</a>`))
			return
		}
		if got := r.URL.Query().Get("confirm"); got != "x9_Z-" {
			t.Errorf("confirm = %q", got)
		}
		_, _ = w.Write([]byte("ok"))
	})
	path := filepath.Join(t.TempDir(), "f.bin")
	if _, err := dl.EnsureFile(context.Background(), path, "big"); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "ok" {
		t.Errorf("content = %q", got)
	}
}

func TestEnsureFile_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		fileID  string
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			fileID: "missing",
		},
		{
			name: "html without token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html>quota exceeded</html>"))
			},
			fileID: "quota",
		},
		{
			name: "empty file id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			},
			fileID: " ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl, _ := newTestDownloader(t, tt.handler)
			path := filepath.Join(t.TempDir(), "out.bin")
			if _, err := dl.EnsureFile(context.Background(), path, tt.fileID); err == nil {
				t.Fatal("expected error")
			}
			if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
				t.Error("no file should be left at path after a failure")
			}
			if _, err := os.Stat(path + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
				t.Error("no temp file should be left after a failure")
			}
		})
	}
}

func TestEnsureFile_ContextCancelled(t *testing.T) {
	dl, _ := newTestDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := dl.EnsureFile(ctx, filepath.Join(t.TempDir(), "x"), "id"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewDownloader_RequiresURL(t *testing.T) {
	if _, err := NewDownloader("  "); err == nil {
		t.Fatal("expected error for empty url")
	}
}
