package poster_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/poster"
)

const (
	noPosterURL = "https://via.placeholder.com/150?text=No+Poster"
	errorURL    = "https://via.placeholder.com/150?text=Error"
)

func testSettings() poster.Settings {
	return poster.Settings{
		ImageBase:   "https://image.tmdb.org/t/p",
		Size:        "w500",
		NoPosterURL: noPosterURL,
		ErrorURL:    errorURL,
		Timeout:     time.Second,
	}
}

func newResolver(t *testing.T, handler http.HandlerFunc, settings poster.Settings) *poster.TMDBResolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := poster.NewClient("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return poster.NewTMDBResolver(client, settings, zap.NewNop())
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := poster.NewClient(" ", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if _, err := poster.NewClient("key", "", "en-US"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestResolvePosterPath(t *testing.T) {
	resolver := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/19995" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "key" || q.Get("language") != "en-US" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":19995,"title":"Avatar","poster_path":"/xyz.jpg"}`))
	}, testSettings())

	got := resolver.Resolve(context.Background(), 19995)
	want := "https://image.tmdb.org/t/p/w500/xyz.jpg"
	if got != want {
		t.Fatalf("Resolve = %q, want %q", got, want)
	}
	if !strings.HasSuffix(got, "/xyz.jpg") {
		t.Errorf("poster URL should end with /xyz.jpg, got %q", got)
	}
}

func TestResolveMissingPosterPath(t *testing.T) {
	for name, body := range map[string]string{
		"null":   `{"id":1,"poster_path":null}`,
		"absent": `{"id":1}`,
		"empty":  `{"id":1,"poster_path":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			resolver := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}, testSettings())
			if got := resolver.Resolve(context.Background(), 1); got != noPosterURL {
				t.Errorf("Resolve = %q, want no-poster placeholder", got)
			}
		})
	}
}

func TestResolveHTTPError(t *testing.T) {
	resolver := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34}`))
	}, testSettings())
	if got := resolver.Resolve(context.Background(), 1); got != errorURL {
		t.Errorf("Resolve = %q, want error placeholder", got)
	}
}

func TestResolveMalformedBody(t *testing.T) {
	resolver := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}, testSettings())
	if got := resolver.Resolve(context.Background(), 1); got != errorURL {
		t.Errorf("Resolve = %q, want error placeholder", got)
	}
}

func TestResolveTimeout(t *testing.T) {
	settings := testSettings()
	settings.Timeout = 50 * time.Millisecond
	resolver := newResolver(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, settings)

	start := time.Now()
	got := resolver.Resolve(context.Background(), 1)
	if got != errorURL {
		t.Errorf("Resolve = %q, want error placeholder", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Resolve took %v, timeout not applied", elapsed)
	}
}

func TestResolveUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	client, err := poster.NewClient("key", url, "en-US")
	if err != nil {
		t.Fatal(err)
	}
	resolver := poster.NewTMDBResolver(client, testSettings(), nil)
	if got := resolver.Resolve(context.Background(), 1); got != errorURL {
		t.Errorf("Resolve = %q, want error placeholder", got)
	}
}

type fetcherFunc func(ctx context.Context, id int64) (*poster.MovieDetails, error)

func (f fetcherFunc) GetMovieDetails(ctx context.Context, id int64) (*poster.MovieDetails, error) {
	return f(ctx, id)
}

func TestResolveBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	fetcher := fetcherFunc(func(ctx context.Context, id int64) (*poster.MovieDetails, error) {
		calls++
		return nil, errors.New("boom")
	})
	resolver := poster.NewTMDBResolver(fetcher, testSettings(), zap.NewNop())
	for i := 0; i < 15; i++ {
		if got := resolver.Resolve(context.Background(), int64(i)); got != errorURL {
			t.Fatalf("call %d: Resolve = %q, want error placeholder", i, got)
		}
	}
	if calls != 10 {
		t.Errorf("fetcher called %d times, want 10 before the breaker opens", calls)
	}
}

func TestResolveRateLimitedContextCancelled(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, id int64) (*poster.MovieDetails, error) {
		return &poster.MovieDetails{ID: id, PosterPath: "/a.jpg"}, nil
	})
	settings := testSettings()
	settings.RequestsPerSecond = 0.001
	settings.Burst = 1
	resolver := poster.NewTMDBResolver(fetcher, settings, zap.NewNop())

	if got := resolver.Resolve(context.Background(), 1); got != "https://image.tmdb.org/t/p/w500/a.jpg" {
		t.Fatalf("first call should use the burst token, got %q", got)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := resolver.Resolve(ctx, 2); got != errorURL {
		t.Errorf("Resolve = %q, want error placeholder when limiter wait fails", got)
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base, size, path, want string
	}{
		{"https://image.tmdb.org/t/p", "w500", "/xyz.jpg", "https://image.tmdb.org/t/p/w500/xyz.jpg"},
		{"https://image.tmdb.org/t/p/", "w342", "abc.png", "https://image.tmdb.org/t/p/w342/abc.png"},
	}
	for _, tt := range tests {
		if got := poster.BuildURL(tt.base, tt.size, tt.path); got != tt.want {
			t.Errorf("BuildURL(%q,%q,%q) = %q, want %q", tt.base, tt.size, tt.path, got, tt.want)
		}
	}
}

func TestStaticResolver(t *testing.T) {
	r := poster.StaticResolver{URL: noPosterURL}
	if got := r.Resolve(context.Background(), 42); got != noPosterURL {
		t.Errorf("Resolve = %q", got)
	}
}
