// Package artifact fetches the catalog and similarity files from a blob host on
// first start.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/metrics"
)

// ChunkSize is the size of each buffered write while streaming a download.
const ChunkSize = 32 * 1024

const (
	defaultTimeout = 10 * time.Minute
	// maxPageBytes bounds how much of an interstitial HTML page is scanned for a token.
	maxPageBytes = 1 << 20
)

var confirmPattern = regexp.MustCompile(`confirm=([0-9A-Za-z_\-]+)`)

// Downloader retrieves files by ID from a Google Drive style host that may
// interpose a confirmation step for large files.
type Downloader struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout bounds a whole download, including the confirmation round trip.
func WithTimeout(d time.Duration) Option {
	return func(dl *Downloader) {
		if d > 0 {
			dl.client.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(dl *Downloader) {
		if l != nil {
			dl.logger = l
		}
	}
}

// NewDownloader creates a downloader for baseURL, e.g. https://docs.google.com/uc.
func NewDownloader(baseURL string, opts ...Option) (*Downloader, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("download url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid download url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	dl := &Downloader{
		baseURL: baseURL,
		client:  &http.Client{Jar: jar, Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(dl)
	}
	return dl, nil
}

// EnsureFile downloads fileID to path unless path already exists. It reports
// whether a download happened.
func (d *Downloader) EnsureFile(ctx context.Context, path, fileID string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		d.logger.Debug("artifact present", zap.String("path", path))
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := d.Download(ctx, path, fileID); err != nil {
		return false, err
	}
	return true, nil
}

// Download fetches fileID and atomically replaces path with it. There is no
// retry and no checksum.
func (d *Downloader) Download(ctx context.Context, path, fileID string) error {
	name := filepath.Base(path)
	if err := d.download(ctx, path, fileID); err != nil {
		metrics.ArtifactDownloads.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("download %s: %w", name, err)
	}
	metrics.ArtifactDownloads.WithLabelValues(name, "ok").Inc()
	return nil
}

func (d *Downloader) download(ctx context.Context, path, fileID string) error {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return errors.New("no file id configured")
	}

	d.logger.Info("downloading artifact", zap.String("path", path), zap.String("file_id", fileID))
	start := time.Now()

	resp, err := d.get(ctx, fileID, "")
	if err != nil {
		return err
	}
	if token := confirmToken(resp); token != "" {
		resp.Body.Close()
		d.logger.Debug("confirming large file download", zap.String("file_id", fileID))
		resp, err = d.get(ctx, fileID, token)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if isHTML(resp) {
		return errors.New("host returned an HTML page instead of the file")
	}

	written, err := writeChunks(path, resp.Body)
	if err != nil {
		return err
	}
	d.logger.Info("artifact downloaded",
		zap.String("path", path),
		zap.Int64("bytes", written),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (d *Downloader) get(ctx context.Context, fileID, confirm string) (*http.Response, error) {
	endpoint, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse download url: %w", err)
	}
	params := endpoint.Query()
	params.Set("export", "download")
	params.Set("id", fileID)
	if confirm != "" {
		params.Set("confirm", confirm)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// confirmToken returns the token the host wants echoed back before it serves a
// large file, from a download_warning cookie or the interstitial page. The body
// is consumed when a page is scanned.
func confirmToken(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if strings.HasPrefix(c.Name, "download_warning") && c.Value != "" {
			return c.Value
		}
	}
	if resp.StatusCode != http.StatusOK || !isHTML(resp) {
		return ""
	}
	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return ""
	}
	if m := confirmPattern.FindSubmatch(page); m != nil {
		return string(m[1])
	}
	return ""
}

func isHTML(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}

// writeChunks streams r into path.tmp in ChunkSize pieces, then renames it over path.
func writeChunks(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create artifact directory: %w", err)
	}
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	var written int64
	buf := make([]byte, ChunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				f.Close()
				os.Remove(tempPath)
				return written, fmt.Errorf("write temp file: %w", err)
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			os.Remove(tempPath)
			return written, fmt.Errorf("read body: %w", readErr)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return written, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return written, fmt.Errorf("replace artifact: %w", err)
	}
	return written, nil
}
