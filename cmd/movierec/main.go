// Package main is the movierec CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/artifact"
	"github.com/hyperjump/movierec/internal/catalog"
	"github.com/hyperjump/movierec/internal/cli"
	"github.com/hyperjump/movierec/internal/config"
	"github.com/hyperjump/movierec/internal/keyword"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/poster"
	"github.com/hyperjump/movierec/internal/recommend"
	"github.com/hyperjump/movierec/internal/server"
	"github.com/hyperjump/movierec/internal/similarity"
	"github.com/hyperjump/movierec/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/movierec/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		// No config file anywhere: run on defaults.
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			if key := os.Getenv("TMDB_API_KEY"); key != "" {
				cfg.Poster.APIKey = key
			}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "recommend":
		runRecommend()
	case "titles":
		runTitles()
	case "fetch":
		runFetch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("movierec version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (per-query traces, poster lookups)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Engine, components.Titles, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// joinArgs joins all positional args with spaces so multi-word titles work the
// same with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops
// at the first non-flag argument, so "movierec recommend Avatar --output json"
// would otherwise leave --output unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: movierec recommend [flags] <title>\n\n")
	fmt.Fprintf(fs.Output(), "Title is all remaining arguments joined by spaces and must match a catalog title exactly.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  movierec recommend Avatar
  movierec recommend "The Dark Knight" --output json
  movierec recommend --server http://localhost:8080 Spectre
`)
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load artifacts directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printRecommendUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	title := joinArgs(fs.Args())
	if title == "" {
		printRecommendUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		response, suggestions, err := recommendViaHTTP(*serverURL, title)
		if errors.Is(err, recommend.ErrTitleNotFound) {
			cli.WriteNotFound(os.Stderr, title, suggestions)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Engine.Recommend(ctx, title)
	if errors.Is(err, recommend.ErrTitleNotFound) {
		suggestions, _ := components.Titles.Suggest(ctx, title, 5)
		cli.WriteNotFound(os.Stderr, title, suggestions)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// recommendViaHTTP asks a running server. An unknown title yields
// recommend.ErrTitleNotFound plus the server's suggestions.
func recommendViaHTTP(serverURL, title string) (*models.RecommendResponse, []string, error) {
	endpoint := strings.TrimRight(serverURL, "/") + "/api/v1/recommend?title=" + url.QueryEscape(title)
	resp, err := http.Get(endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		var body struct {
			Suggestions []string `json:"suggestions"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, body.Suggestions, fmt.Errorf("%w: %q", recommend.ErrTitleNotFound, title)
	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}

	var response models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil, nil
}

func runTitles() {
	fs := flag.NewFlagSet("titles", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 0, "maximum titles to print (0 = all, or 10 when searching)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	if err := ensureArtifacts(ctx, cfg, logger, false); err != nil {
		logger.Fatal("Failed to fetch artifacts", zap.Error(err))
	}
	c, err := catalog.Load(cfg.Artifacts.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	query := joinArgs(fs.Args())
	if query == "" {
		titles := c.Titles()
		if *limit > 0 && *limit < len(titles) {
			titles = titles[:*limit]
		}
		if err := cli.WriteTitles(os.Stdout, titles, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	idx, err := keyword.NewTitleIndex(c.Movies())
	if err != nil {
		logger.Fatal("Failed to build title index", zap.Error(err))
	}
	defer idx.Close()
	matches, err := idx.Search(ctx, query, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteMatches(os.Stdout, matches, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runFetch() {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "download even when the artifact already exists")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := ensureArtifacts(context.Background(), cfg, logger, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Fetch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Artifacts ready:\n  %s\n  %s\n", cfg.Artifacts.CatalogPath, cfg.Artifacts.SimilarityPath)
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Movies          int                    `json:"movies"`
	DuplicateTitles int                    `json:"duplicate_titles"`
	TitleIndexDocs  uint64                 `json:"title_index_docs,omitempty"`
	Artifacts       []artifact.FileStatus  `json:"artifacts"`
	DiskUsageBytes  int64                  `json:"disk_usage_bytes"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = inspect artifacts directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status *statusResponse
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		status, err = localStatus(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	writeStatusText(os.Stdout, status)
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "movies:             %d   # catalog entries\n", status.Movies)
	fmt.Fprintf(w, "duplicate_titles:   %d   # titles shadowed by an earlier row\n", status.DuplicateTitles)
	if status.TitleIndexDocs > 0 {
		fmt.Fprintf(w, "title_index_docs:   %d\n", status.TitleIndexDocs)
	}
	fmt.Fprintf(w, "disk_usage_bytes:   %d   # artifacts on disk\n", status.DiskUsageBytes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# artifacts")
	for _, a := range status.Artifacts {
		state := "missing"
		if a.Exists {
			state = strconv.FormatInt(a.Bytes, 10) + " bytes"
		}
		fmt.Fprintf(w, "%s  (%s)\n", a.Path, state)
	}
	if len(status.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		for _, key := range []string{"recommend_count", "workers", "strict_self", "validate_matrix", "poster_source", "poster_size"} {
			if v, ok := status.Config[key]; ok {
				fmt.Fprintf(w, "%-19s %v\n", key+":", v)
			}
		}
	}
}

// localStatus inspects artifacts without starting the engine or downloading.
func localStatus(cfg *config.Config) (*statusResponse, error) {
	files, err := artifact.Stat(cfg.Artifacts.CatalogPath, cfg.Artifacts.SimilarityPath)
	if err != nil {
		return nil, err
	}
	status := &statusResponse{
		Artifacts:      files,
		DiskUsageBytes: artifact.DiskUsageBytes(files),
		Config: map[string]interface{}{
			"recommend_count": cfg.Recommend.Count,
			"workers":         cfg.Recommend.Workers,
			"strict_self":     cfg.Recommend.StrictSelf,
			"validate_matrix": cfg.Recommend.ValidateMatrix,
			"poster_source":   posterSource(cfg),
			"poster_size":     cfg.Poster.Size,
		},
	}
	if len(files) > 0 && files[0].Exists {
		c, err := catalog.Load(cfg.Artifacts.CatalogPath)
		if err != nil {
			return nil, err
		}
		status.Movies = c.Len()
		status.DuplicateTitles = len(c.Duplicates())
	}
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func posterSource(cfg *config.Config) string {
	if cfg.Poster.APIKey != "" {
		return "tmdb"
	}
	return "static"
}

// Components holds initialized services.
type Components struct {
	Catalog *catalog.Catalog
	Matrix  *similarity.Matrix
	Engine  *recommend.Engine
	Titles  *keyword.TitleIndex
}

func (c *Components) Close() {
	if c.Titles != nil {
		_ = c.Titles.Close()
	}
}

// ensureArtifacts makes sure both artifacts exist locally, downloading the
// missing ones (or all of them when force is set).
func ensureArtifacts(ctx context.Context, cfg *config.Config, logger *zap.Logger, force bool) error {
	if !force && !cfg.Artifacts.DownloadOnStartOrDefault() {
		return nil
	}
	dl, err := artifact.NewDownloader(cfg.Artifacts.DownloadURL, artifact.WithLogger(logger))
	if err != nil {
		return err
	}
	for _, a := range []struct{ path, fileID string }{
		{cfg.Artifacts.CatalogPath, cfg.Artifacts.CatalogFileID},
		{cfg.Artifacts.SimilarityPath, cfg.Artifacts.SimilarityFileID},
	} {
		if force {
			if err := dl.Download(ctx, a.path, a.fileID); err != nil {
				return err
			}
			continue
		}
		if _, err := dl.EnsureFile(ctx, a.path, a.fileID); err != nil {
			return err
		}
	}
	return nil
}

func newResolver(cfg *config.Config, logger *zap.Logger) (poster.Resolver, error) {
	if cfg.Poster.APIKey == "" {
		logger.Warn("no TMDB api key configured; posters use the placeholder image")
		return poster.StaticResolver{URL: cfg.Poster.NoPosterURL}, nil
	}
	client, err := poster.NewClient(cfg.Poster.APIKey, cfg.Poster.APIBase, cfg.Poster.Language)
	if err != nil {
		return nil, err
	}
	return poster.NewTMDBResolver(client, poster.Settings{
		ImageBase:         cfg.Poster.ImageBase,
		Size:              cfg.Poster.Size,
		NoPosterURL:       cfg.Poster.NoPosterURL,
		ErrorURL:          cfg.Poster.ErrorURL,
		Timeout:           cfg.Poster.Timeout,
		RequestsPerSecond: cfg.Poster.RequestsPerSecond,
		Burst:             cfg.Poster.Burst,
	}, logger), nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if err := ensureArtifacts(ctx, cfg, logger, false); err != nil {
		return nil, fmt.Errorf("failed to fetch artifacts: %w", err)
	}

	c, err := catalog.Load(cfg.Artifacts.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if dups := c.Duplicates(); len(dups) > 0 {
		logger.Warn("duplicate titles in catalog; the first row wins",
			zap.Int("count", len(dups)),
			zap.Strings("titles", dups))
	}

	m, err := similarity.Load(cfg.Artifacts.SimilarityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load similarity matrix: %w", err)
	}
	if cfg.Recommend.ValidateMatrix {
		if err := m.Validate(cfg.Recommend.Tolerance); err != nil {
			return nil, fmt.Errorf("similarity matrix invalid: %w", err)
		}
	}

	resolver, err := newResolver(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize poster resolver: %w", err)
	}

	engine, err := recommend.NewEngine(c, m, resolver,
		recommend.WithCount(cfg.Recommend.Count),
		recommend.WithWorkers(cfg.Recommend.Workers),
		recommend.WithStrictSelf(cfg.Recommend.StrictSelf),
		recommend.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	titles, err := keyword.NewTitleIndex(c.Movies())
	if err != nil {
		return nil, fmt.Errorf("failed to build title index: %w", err)
	}

	logger.Info("recommender ready",
		zap.Int("movies", c.Len()),
		zap.Int("count", engine.Count()),
		zap.String("poster_source", posterSource(cfg)))

	return &Components{
		Catalog: c,
		Matrix:  m,
		Engine:  engine,
		Titles:  titles,
	}, nil
}

func printUsage() {
	fmt.Println(`movierec - Movie recommendations from a precomputed similarity matrix

Usage:
  movierec server [flags]              Start the HTTP server and recommendation page
  movierec recommend [flags] <title>   Recommend movies similar to a catalog title
  movierec titles [flags] [query]      List catalog titles, or search them
  movierec fetch [flags]               Download the catalog and similarity artifacts
  movierec status [flags]              Show catalog/artifact status
  movierec version                     Show version
  movierec help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/movierec/config.yaml)
  --debug            Enable debug logging

Recommend Flags:
  --config string    Config file path
  --server string    Server URL; empty (default) loads artifacts directly
  --output string    Output format: text or json (default: text)

Titles Flags:
  --config string    Config file path
  --limit int        Maximum titles to print
  --output string    Output format: text or json (default: text)

Fetch Flags:
  --config string    Config file path
  --force            Re-download artifacts that already exist

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to inspect artifacts directly.
  --output string    Output format: text or json (default: text)

Environment:
  TMDB_API_KEY       TMDB key used when the config file does not set poster.api_key

Examples:
  movierec server
  movierec recommend Avatar
  movierec recommend "The Dark Knight" --output json
  movierec titles dark knight
  movierec fetch --force
  movierec status --server ""`)
}
