// Package config provides configuration loading and structs for the movierec server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Poster    PosterConfig    `yaml:"poster"`
	Recommend RecommendConfig `yaml:"recommend"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is the number of recommend requests allowed per client IP within RateWindow.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

// ArtifactsConfig holds the paths of the precomputed catalog and similarity matrix,
// and where to fetch them from when they are missing locally.
type ArtifactsConfig struct {
	CatalogPath      string `yaml:"catalog_path"`
	SimilarityPath   string `yaml:"similarity_path"`
	CatalogFileID    string `yaml:"catalog_file_id"`
	SimilarityFileID string `yaml:"similarity_file_id"`
	DownloadURL      string `yaml:"download_url"`
	DownloadOnStart  *bool  `yaml:"download_on_start"`
}

// DownloadOnStartOrDefault returns whether missing artifacts are fetched at startup; defaults to true.
func (a *ArtifactsConfig) DownloadOnStartOrDefault() bool {
	if a.DownloadOnStart != nil {
		return *a.DownloadOnStart
	}
	return true
}

// PosterConfig holds TMDB metadata lookup settings.
type PosterConfig struct {
	APIBase           string        `yaml:"api_base"`
	APIKey            string        `yaml:"api_key"`
	Language          string        `yaml:"language"`
	ImageBase         string        `yaml:"image_base"`
	Size              string        `yaml:"size"`
	Timeout           time.Duration `yaml:"timeout"`
	NoPosterURL       string        `yaml:"no_poster_url"`
	ErrorURL          string        `yaml:"error_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	Count   int `yaml:"count"`
	Workers int `yaml:"workers"`
	// ValidateMatrix checks diagonal maximality and symmetry at load time.
	ValidateMatrix bool    `yaml:"validate_matrix"`
	Tolerance      float64 `yaml:"tolerance"`
	// StrictSelf excludes the selected row by index instead of skipping rank 0.
	StrictSelf bool `yaml:"strict_self"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Poster.APIKey == "" {
		cfg.Poster.APIKey = strings.TrimSpace(os.Getenv("TMDB_API_KEY"))
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Artifacts.CatalogPath = expandPath(cfg.Artifacts.CatalogPath, configDir)
	cfg.Artifacts.SimilarityPath = expandPath(cfg.Artifacts.SimilarityPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
