package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"foremharvest/pkg/config"
	"foremharvest/pkg/forem"
	"foremharvest/pkg/harvester"
	"foremharvest/pkg/logger"
	"foremharvest/pkg/retry"
	"foremharvest/pkg/storage"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	mode       = flag.String("mode", "", "Run mode: incremental or backfill")
	bucket     = flag.String("bucket", "", "Blob storage bucket")
	maxPages   = flag.Int("max-pages", 0, "Maximum pages per backfill run")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	serveAddr  = flag.String("serve", "", "Listen address for the on-demand HTTP trigger (e.g. :8080)")
	every      = flag.Duration("every", 0, "Timer trigger interval (e.g. 1h); runs until interrupted")
)

func main() {
	flag.Parse()

	// Build command line flags map
	flags := make(map[string]interface{})
	if *mode != "" {
		flags["mode"] = *mode
	}
	if *bucket != "" {
		flags["bucket"] = *bucket
	}
	if *maxPages > 0 {
		flags["max-pages"] = *maxPages
	}
	if *logLevel != "" {
		flags["log-level"] = *logLevel
	}

	// Configuration failures are fatal at process start
	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	log.InfoWithFields("foremharvest starting", map[string]interface{}{
		"mode":   cfg.Harvest.Mode,
		"bucket": cfg.Storage.Bucket,
	})

	ctx := context.Background()

	// The blob store is constructed once here and passed down, never held
	// as ambient state.
	blob, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("failed to create blob store")
	}

	runner := newRunner(cfg, blob, log)

	switch {
	case *serveAddr != "":
		if err := serveTrigger(ctx, *serveAddr, runner, log); err != nil {
			log.WithError(err).Fatal("HTTP trigger failed")
		}
	case *every > 0:
		timerTrigger(ctx, *every, runner, log)
	default:
		res, err := runner.Run(ctx)
		if err != nil {
			log.WithError(err).Error("harvest run failed")
			os.Exit(1)
		}
		log.InfoWithFields("harvest run finished", map[string]interface{}{
			"outcome":  string(res.Outcome()),
			"ingested": res.Ingested,
		})
	}
}

// newRunner wires the API client, fetcher and runner from configuration.
func newRunner(cfg *config.Config, blob storage.BlobStore, log logger.Logger) *harvester.Runner {
	client := forem.NewClient(cfg.API.BaseURL, cfg.API.PerPage, cfg.API.RequestTimeout, log)
	if cfg.API.UserAgent != "" {
		client.SetUserAgent(cfg.API.UserAgent)
	}

	backoff := &retry.ExponentialBackoff{
		BaseDelay:  cfg.RateLimit.BackoffBase,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
	}
	fetcher := forem.NewFetcher(client, cfg.RateLimit.MaxRetries, backoff, log)

	return harvester.NewRunner(cfg, blob, fetcher, log)
}
