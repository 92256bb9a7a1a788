// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Site               *Site
	DatabasePath       string
	OutputDir          string
	TemplateDir        string
	SiteConfigPath     string
	SourceFormat       string
	ShortenerURL       string
	ShortenerToken     string
	PublishBucket      string
	PublishPrefix      string
	SourceURLs         []string
	FetchTimeout       time.Duration
	RefreshInterval    time.Duration
	FetchRetries       int
	LatestCount        int
	ShortenConcurrency int
	Notify             bool
	ExportParquet      bool
}

// Default values
const (
	defaultOutputDir          = "site"
	defaultSourceFormat       = "json"
	defaultLatestCount        = 30
	defaultFetchTimeout       = 30 * time.Second
	defaultFetchRetries       = 3
	defaultShortenConcurrency = 5
	defaultRefreshInterval    = 15 * time.Minute
)

// ErrNoSource is returned by RequireSource when COMMENTS_SOURCE_URL is not set.
var ErrNoSource = errors.New("COMMENTS_SOURCE_URL is required")

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DatabasePath:       getEnvString("DATABASE_PATH", getDefaultDatabasePath()),
		OutputDir:          getEnvString("OUTPUT_DIR", defaultOutputDir),
		TemplateDir:        getEnvString("TEMPLATE_DIR", ""),
		SiteConfigPath:     getEnvString("SITE_CONFIG", ""),
		SourceURLs:         getEnvList("COMMENTS_SOURCE_URL"),
		SourceFormat:       strings.ToLower(getEnvString("COMMENTS_SOURCE_FORMAT", defaultSourceFormat)),
		ShortenerURL:       getEnvString("SHORTENER_URL", ""),
		ShortenerToken:     getEnvString("SHORTENER_TOKEN", ""),
		PublishBucket:      getEnvString("PUBLISH_BUCKET", ""),
		PublishPrefix:      getEnvString("PUBLISH_PREFIX", ""),
		LatestCount:        getEnvInt("LATEST_COUNT", defaultLatestCount),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", defaultFetchTimeout),
		FetchRetries:       getEnvInt("FETCH_RETRIES", defaultFetchRetries),
		ShortenConcurrency: getEnvInt("SHORTEN_CONCURRENCY", defaultShortenConcurrency),
		RefreshInterval:    getEnvDuration("REFRESH_INTERVAL", defaultRefreshInterval),
		Notify:             getEnvBool("NOTIFY", false),
		ExportParquet:      getEnvBool("EXPORT_PARQUET", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	site, err := LoadSite(cfg.SiteConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Site = site

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.SourceFormat {
	case "json", "html":
	default:
		return fmt.Errorf("unsupported COMMENTS_SOURCE_FORMAT %q (want json or html)", c.SourceFormat)
	}

	if c.LatestCount <= 0 {
		return fmt.Errorf("LATEST_COUNT must be positive, got %d", c.LatestCount)
	}
	if c.ShortenConcurrency <= 0 {
		return fmt.Errorf("SHORTEN_CONCURRENCY must be positive, got %d", c.ShortenConcurrency)
	}
	if c.FetchRetries <= 0 {
		return fmt.Errorf("FETCH_RETRIES must be positive, got %d", c.FetchRetries)
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR must not be empty")
	}
	return nil
}

// RequireSource fails unless a comment source is configured. Only commands
// that fetch call it, so stats and publish work from the local store alone.
func (c *Config) RequireSource() error {
	if len(c.SourceURLs) == 0 {
		return ErrNoSource
	}
	return nil
}

// ShorteningEnabled reports whether a URL shortener is configured.
func (c *Config) ShorteningEnabled() bool {
	return c.ShortenerURL != ""
}

// PublishingEnabled reports whether built sites are uploaded to S3.
func (c *Config) PublishingEnabled() bool {
	return c.PublishBucket != ""
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "comment-archive", ".env"),
			filepath.Join(home, ".comment-archive", ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "comments.db"
	}
	return filepath.Join(home, ".config", "comment-archive", "comments.db")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated environment variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
