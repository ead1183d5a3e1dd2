package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.BaseURL != "https://dev.to/api/articles/latest" {
		t.Errorf("Unexpected default base URL: %s", cfg.API.BaseURL)
	}
	if cfg.API.PerPage != 300 {
		t.Errorf("Expected per page 300, got %d", cfg.API.PerPage)
	}
	if cfg.API.RequestTimeout != 10*time.Second {
		t.Errorf("Expected 10s request timeout, got %v", cfg.API.RequestTimeout)
	}
	if cfg.Harvest.Mode != ModeIncremental {
		t.Errorf("Expected incremental default mode, got %s", cfg.Harvest.Mode)
	}
	if cfg.Harvest.FlushThreshold != 128<<20 {
		t.Errorf("Expected 128 MiB flush threshold, got %d", cfg.Harvest.FlushThreshold)
	}
	if cfg.RateLimit.MaxRetries != 3 {
		t.Errorf("Expected 3 max retries, got %d", cfg.RateLimit.MaxRetries)
	}
}

func TestValidateRequiresBucket(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket") {
		t.Errorf("Expected bucket error, got: %v", err)
	}

	cfg.Storage.Bucket = "articles-raw"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.PerPage = 0
	cfg.Harvest.Mode = "bogus"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}

	for _, want := range []string{"per page", "mode", "log level", "bucket"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error mentioning %q, got: %v", want, err)
		}
	}
}

func TestValidateBackfillNeedsPageBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Bucket = "articles-raw"
	cfg.Harvest.Mode = ModeBackfill
	cfg.Harvest.MaxPagesPerRun = 0

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for backfill without page budget")
	}

	cfg.Harvest.MaxPagesPerRun = 25
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOREMHARVEST_API_URL", "https://forem.example/api/articles/latest")
	t.Setenv("FOREMHARVEST_MODE", "BACKFILL")
	t.Setenv("FOREMHARVEST_MAX_PAGES_PER_RUN", "50")
	t.Setenv("FOREMHARVEST_BUCKET", "env-bucket")
	t.Setenv("FOREMHARVEST_USE_PATH_STYLE", "true")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.API.BaseURL != "https://forem.example/api/articles/latest" {
		t.Errorf("Unexpected base URL: %s", cfg.API.BaseURL)
	}
	if cfg.Harvest.Mode != ModeBackfill {
		t.Errorf("Expected backfill mode, got %s", cfg.Harvest.Mode)
	}
	if cfg.Harvest.MaxPagesPerRun != 50 {
		t.Errorf("Expected 50 max pages, got %d", cfg.Harvest.MaxPagesPerRun)
	}
	if cfg.Storage.Bucket != "env-bucket" {
		t.Errorf("Expected env-bucket, got %s", cfg.Storage.Bucket)
	}
	if !cfg.Storage.UsePathStyle {
		t.Error("Expected path style addressing enabled")
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
api:
  per_page: 100
harvest:
  mode: backfill
  max_pages_per_run: 5
storage:
  bucket: file-bucket
  prefix: raw/
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.API.PerPage != 100 {
		t.Errorf("Expected per page 100, got %d", cfg.API.PerPage)
	}
	if cfg.Harvest.Mode != ModeBackfill {
		t.Errorf("Expected backfill mode, got %s", cfg.Harvest.Mode)
	}
	if cfg.Storage.Bucket != "file-bucket" {
		t.Errorf("Expected file-bucket, got %s", cfg.Storage.Bucket)
	}
	// Fields absent from the file keep their defaults
	if cfg.API.BaseURL != "https://dev.to/api/articles/latest" {
		t.Errorf("Expected default base URL, got %s", cfg.API.BaseURL)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestMergeFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeFlags(map[string]interface{}{
		"mode":      "backfill",
		"bucket":    "flag-bucket",
		"max-pages": 7,
		"log-level": "debug",
	})

	if cfg.Harvest.Mode != ModeBackfill {
		t.Errorf("Expected backfill mode, got %s", cfg.Harvest.Mode)
	}
	if cfg.Storage.Bucket != "flag-bucket" {
		t.Errorf("Expected flag-bucket, got %s", cfg.Storage.Bucket)
	}
	if cfg.Harvest.MaxPagesPerRun != 7 {
		t.Errorf("Expected 7 max pages, got %d", cfg.Harvest.MaxPagesPerRun)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Logging.Level)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FOREMHARVEST_BUCKET", "env-bucket")

	cfg, err := Load("", map[string]interface{}{"bucket": "flag-bucket"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.Bucket != "flag-bucket" {
		t.Errorf("Expected flags to win over env, got %s", cfg.Storage.Bucket)
	}
}
