package harvester

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"foremharvest/pkg/buffer"
	"foremharvest/pkg/checkpoint"
	"foremharvest/pkg/config"
	"foremharvest/pkg/logger"
	"foremharvest/pkg/ratelimit"
	"foremharvest/pkg/storage"
)

// Runner is the top-level entry point invoked by the external trigger.
// It wires the checkpoint store, collector, and buffer together for one
// invocation and owns the commit decision at the end of the run.
type Runner struct {
	cfg         *config.Config
	blob        storage.BlobStore
	fetcher     PageFetcher
	checkpoints *checkpoint.Store
	limiter     ratelimit.Limiter
	logger      logger.Logger
}

// NewRunner creates a runner. The blob store is an explicit dependency so
// tests can substitute a fake backend.
func NewRunner(cfg *config.Config, blob storage.BlobStore, fetcher PageFetcher, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Runner{
		cfg:         cfg,
		blob:        blob,
		fetcher:     fetcher,
		checkpoints: checkpoint.NewStore(blob, log),
		limiter:     ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute),
		logger:      log,
	}
}

// Run executes one harvest invocation to completion. Persistent state
// (checkpoint and final artifact) is committed only when at least one
// record was ingested: a no-op run writes nothing and leaves the previous
// checkpoint untouched.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	buf := buffer.New(r.blob, r.cfg.Harvest.ArtifactBaseName, r.cfg.Harvest.FlushThreshold, r.logger)
	col := NewCollector(r.fetcher, buf, r.limiter, r.cfg.Harvest.PageDelay, r.logger)

	switch r.cfg.Harvest.Mode {
	case config.ModeBackfill:
		return r.runBackfill(ctx, col, buf)
	default:
		return r.runIncremental(ctx, col, buf)
	}
}

func (r *Runner) runIncremental(ctx context.Context, col *Collector, buf *buffer.Buffer) (*Result, error) {
	since, found := r.checkpoints.LoadTimestamp(ctx)
	r.logger.InfoWithFields("starting incremental harvest", map[string]interface{}{
		"checkpoint_found": found,
		"since":            since,
	})

	res := col.CollectIncremental(ctx, since)
	if res.Ingested == 0 {
		r.logger.InfoWithFields("no new articles found", map[string]interface{}{
			"reason": string(res.Reason),
		})
		return res, nil
	}

	// Final artifact carries the last fully processed page number, 1 when
	// the run stopped inside the first page.
	identifier := strconv.Itoa(res.LastPage)
	if res.LastPage < 1 {
		identifier = "1"
	}

	key, err := buf.FlushFinal(ctx, identifier)
	if err != nil {
		return res, fmt.Errorf("final flush failed: %w", err)
	}
	if key != "" {
		res.Artifacts = append(res.Artifacts, key)
	}

	if err := r.checkpoints.SaveTimestamp(ctx, res.HighWater); err != nil {
		return res, fmt.Errorf("failed to save timestamp checkpoint: %w", err)
	}

	r.logger.InfoWithFields("incremental harvest completed", map[string]interface{}{
		"ingested":   res.Ingested,
		"skipped":    res.Skipped,
		"last_page":  res.LastPage,
		"high_water": res.HighWater,
		"outcome":    string(res.Outcome()),
	})
	return res, nil
}

func (r *Runner) runBackfill(ctx context.Context, col *Collector, buf *buffer.Buffer) (*Result, error) {
	start := r.checkpoints.LoadPage(ctx)
	r.logger.InfoWithFields("starting backfill harvest", map[string]interface{}{
		"start_page": start,
		"max_pages":  r.cfg.Harvest.MaxPagesPerRun,
	})

	res := col.CollectBackfill(ctx, start, r.cfg.Harvest.MaxPagesPerRun)
	if res.Ingested == 0 {
		r.logger.InfoWithFields("no articles ingested", map[string]interface{}{
			"reason": string(res.Reason),
		})
		return res, nil
	}

	key, err := buf.FlushFinal(ctx, backfillIdentifier)
	if err != nil {
		return res, fmt.Errorf("final flush failed: %w", err)
	}
	if key != "" {
		res.Artifacts = append(res.Artifacts, key)
	}

	if err := r.checkpoints.SavePage(ctx, res.NextPage); err != nil {
		return res, fmt.Errorf("failed to save page checkpoint: %w", err)
	}

	r.logger.InfoWithFields("backfill paused", map[string]interface{}{
		"ingested":  res.Ingested,
		"skipped":   res.Skipped,
		"last_page": res.LastPage,
		"next_page": res.NextPage,
		"outcome":   string(res.Outcome()),
	})
	return res, nil
}
