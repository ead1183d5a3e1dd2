package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Run modes. Incremental resumes from the stored high-water timestamp;
// backfill walks historical pages from the stored page cursor.
const (
	ModeIncremental = "incremental"
	ModeBackfill    = "backfill"
)

// Config holds all configuration options for the article harvester
type Config struct {
	// Upstream articles API
	API APIConfig `yaml:"api" json:"api"`

	// Harvest run behavior
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Durable blob storage
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Request pacing and retry behavior
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds settings for the Forem-compatible articles endpoint
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	PerPage        int           `yaml:"per_page" json:"per_page"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
}

// HarvestConfig holds run-mode settings
type HarvestConfig struct {
	// Mode selects the stopping policy: incremental (timestamp cutoff)
	// or backfill (page budget). The two are mutually exclusive.
	Mode string `yaml:"mode" json:"mode"`

	// MaxPagesPerRun bounds one backfill invocation. Ignored in
	// incremental mode.
	MaxPagesPerRun int `yaml:"max_pages_per_run" json:"max_pages_per_run"`

	// PageDelay is the politeness pause between successive page fetches.
	PageDelay time.Duration `yaml:"page_delay" json:"page_delay"`

	// FlushThreshold is the serialized buffer size, in bytes, that
	// triggers a mid-run flush.
	FlushThreshold int64 `yaml:"flush_threshold" json:"flush_threshold"`

	// ArtifactBaseName is the base segment of artifact keys.
	ArtifactBaseName string `yaml:"artifact_base_name" json:"artifact_base_name"`
}

// StorageConfig holds blob store settings
type StorageConfig struct {
	// Bucket is the bucket name (required).
	Bucket string `yaml:"bucket" json:"bucket"`
	// Prefix is the key prefix within the bucket (optional).
	Prefix string `yaml:"prefix" json:"prefix"`
	// Region is the AWS region (optional, uses default chain if empty).
	Region string `yaml:"region" json:"region"`
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. MinIO, Cloudflare R2). Empty uses the default AWS endpoint.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool `yaml:"use_path_style" json:"use_path_style"`
}

// RateLimitConfig holds request pacing and retry configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	BackoffBase       time.Duration `yaml:"backoff_base" json:"backoff_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "https://dev.to/api/articles/latest",
			PerPage:        300,
			RequestTimeout: 10 * time.Second,
			UserAgent:      "foremharvest/1.0",
		},
		Harvest: HarvestConfig{
			Mode:             ModeIncremental,
			MaxPagesPerRun:   10,
			PageDelay:        1 * time.Second,
			FlushThreshold:   128 << 20, // 128 MiB
			ArtifactBaseName: "articles",
		},
		Storage: StorageConfig{
			Prefix: "",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			MaxRetries:        3,
			BackoffBase:       2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("FOREMHARVEST_API_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if perPage := os.Getenv("FOREMHARVEST_PER_PAGE"); perPage != "" {
		var val int
		fmt.Sscanf(perPage, "%d", &val)
		if val > 0 {
			c.API.PerPage = val
		}
	}

	if mode := os.Getenv("FOREMHARVEST_MODE"); mode != "" {
		c.Harvest.Mode = strings.ToLower(mode)
	}
	if maxPages := os.Getenv("FOREMHARVEST_MAX_PAGES_PER_RUN"); maxPages != "" {
		var val int
		fmt.Sscanf(maxPages, "%d", &val)
		if val > 0 {
			c.Harvest.MaxPagesPerRun = val
		}
	}

	if bucket := os.Getenv("FOREMHARVEST_BUCKET"); bucket != "" {
		c.Storage.Bucket = bucket
	}
	if prefix := os.Getenv("FOREMHARVEST_PREFIX"); prefix != "" {
		c.Storage.Prefix = prefix
	}
	if region := os.Getenv("FOREMHARVEST_REGION"); region != "" {
		c.Storage.Region = region
	}
	if endpoint := os.Getenv("FOREMHARVEST_ENDPOINT"); endpoint != "" {
		c.Storage.Endpoint = endpoint
	}
	if pathStyle := os.Getenv("FOREMHARVEST_USE_PATH_STYLE"); pathStyle != "" {
		c.Storage.UsePathStyle = strings.ToLower(pathStyle) == "true"
	}

	if rpm := os.Getenv("FOREMHARVEST_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if logLevel := os.Getenv("FOREMHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".foremharvest.yaml",
		".foremharvest.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "foremharvest", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "foremharvest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.PerPage <= 0 {
		errs = append(errs, errors.New("per page must be positive"))
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Harvest.Mode != ModeIncremental && c.Harvest.Mode != ModeBackfill {
		errs = append(errs, fmt.Errorf("mode must be %q or %q", ModeIncremental, ModeBackfill))
	}
	if c.Harvest.Mode == ModeBackfill && c.Harvest.MaxPagesPerRun <= 0 {
		errs = append(errs, errors.New("max pages per run must be positive in backfill mode"))
	}
	if c.Harvest.FlushThreshold <= 0 {
		errs = append(errs, errors.New("flush threshold must be positive"))
	}
	if c.Harvest.ArtifactBaseName == "" {
		errs = append(errs, errors.New("artifact base name is required"))
	}
	if c.Harvest.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}

	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage bucket is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.MaxRetries < 1 {
		errs = append(errs, errors.New("max retries must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeFlags merges command line flag overrides into the configuration
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Harvest.Mode = strings.ToLower(mode)
	}
	if bucket, ok := flags["bucket"].(string); ok && bucket != "" {
		c.Storage.Bucket = bucket
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Harvest.MaxPagesPerRun = maxPages
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".foremharvest.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
