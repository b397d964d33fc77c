package config

import "time"

// Placeholder images returned when a poster cannot be shown.
const (
	DefaultNoPosterURL = "https://via.placeholder.com/150?text=No+Poster"
	DefaultErrorURL    = "https://via.placeholder.com/150?text=Error"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 60
	}
	if cfg.Server.RateWindow == 0 {
		cfg.Server.RateWindow = time.Minute
	}
	if cfg.Artifacts.CatalogPath == "" {
		cfg.Artifacts.CatalogPath = "/usr/local/var/movierec/data/movie_list.json"
	}
	if cfg.Artifacts.SimilarityPath == "" {
		cfg.Artifacts.SimilarityPath = "/usr/local/var/movierec/data/similarity.bin"
	}
	if cfg.Artifacts.DownloadURL == "" {
		cfg.Artifacts.DownloadURL = "https://docs.google.com/uc"
	}
	if cfg.Poster.APIBase == "" {
		cfg.Poster.APIBase = "https://api.themoviedb.org/3"
	}
	if cfg.Poster.Language == "" {
		cfg.Poster.Language = "en-US"
	}
	if cfg.Poster.ImageBase == "" {
		cfg.Poster.ImageBase = "https://image.tmdb.org/t/p"
	}
	if cfg.Poster.Size == "" {
		cfg.Poster.Size = "w500"
	}
	if cfg.Poster.Timeout == 0 {
		cfg.Poster.Timeout = 5 * time.Second
	}
	if cfg.Poster.NoPosterURL == "" {
		cfg.Poster.NoPosterURL = DefaultNoPosterURL
	}
	if cfg.Poster.ErrorURL == "" {
		cfg.Poster.ErrorURL = DefaultErrorURL
	}
	if cfg.Poster.RequestsPerSecond == 0 {
		cfg.Poster.RequestsPerSecond = 40
	}
	if cfg.Poster.Burst == 0 {
		cfg.Poster.Burst = 10
	}
	if cfg.Recommend.Count == 0 {
		cfg.Recommend.Count = 5
	}
	// One fetch per recommendation slot.
	if cfg.Recommend.Workers == 0 {
		cfg.Recommend.Workers = cfg.Recommend.Count
	}
	if cfg.Recommend.Tolerance == 0 {
		cfg.Recommend.Tolerance = 1e-6
	}
}
