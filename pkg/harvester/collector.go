package harvester

import (
	"context"
	"strconv"
	"time"

	"foremharvest/pkg/buffer"
	"foremharvest/pkg/forem"
	"foremharvest/pkg/logger"
	"foremharvest/pkg/ratelimit"
	"foremharvest/pkg/retry"
)

// backfillIdentifier names backfill artifacts in place of a page number.
const backfillIdentifier = "backfill"

// PageFetcher retrieves one page of articles. A non-ok page status is the
// universal stop signal.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) forem.Page
}

// Collector drives sequential pagination and applies the stopping rule.
// Pages are processed strictly in order: the cutoff decision for page N
// can terminate the run before page N+1 is ever requested.
//
// Two mutually exclusive stopping policies exist: timestamp cutoff
// (CollectIncremental) and page budget (CollectBackfill). The cutoff rule
// relies on the upstream returning articles newest-first, both within and
// across pages.
type Collector struct {
	fetcher PageFetcher
	buffer  *buffer.Buffer
	limiter ratelimit.Limiter
	delay   time.Duration
	logger  logger.Logger
}

// NewCollector creates a collector. The buffer must be fresh: no buffer
// state survives across runs.
func NewCollector(fetcher PageFetcher, buf *buffer.Buffer, limiter ratelimit.Limiter, delay time.Duration, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Collector{
		fetcher: fetcher,
		buffer:  buf,
		limiter: limiter,
		delay:   delay,
		logger:  log,
	}
}

// CollectIncremental harvests from page 1 until the upstream is exhausted
// or a record at or before since is reached. A zero since disables the
// cutoff (first run ingests everything).
func (c *Collector) CollectIncremental(ctx context.Context, since time.Time) *Result {
	res := &Result{HighWater: since}
	page := 1

	for {
		c.pace()

		p := c.fetcher.FetchPage(ctx, page)
		if stop := c.stopForStatus(p.Status); stop != "" {
			res.Reason = stop
			res.NextPage = page
			return res
		}

		for _, article := range p.Articles {
			ts, err := article.PublishedAt()
			if err != nil {
				res.Skipped++
				c.logger.WarnWithFields("skipping article with unparseable timestamp", map[string]interface{}{
					"page":  page,
					"error": err.Error(),
				})
				continue
			}

			// Pages are newest-first: the first record at or before the
			// checkpoint marks the start of already-ingested data, so the
			// rest of this page and all later pages are abandoned.
			if !since.IsZero() && !ts.After(since) {
				c.logger.InfoWithFields("reached already processed articles, stopping", map[string]interface{}{
					"page":         page,
					"published_at": ts,
				})
				res.Reason = StopCutoff
				res.NextPage = page
				return res
			}

			c.accept(ctx, res, article, ts, strconv.Itoa(page))
		}

		res.LastPage = page
		res.NextPage = page + 1
		page++

		if err := retry.Wait(ctx, c.delay); err != nil {
			c.logger.WarnWithFields("run interrupted during page delay", map[string]interface{}{
				"reason": err.Error(),
			})
			res.Reason = StopDegraded
			return res
		}
	}
}

// CollectBackfill harvests maxPages pages starting at startPage, with no
// timestamp cutoff. NextPage in the result is the cursor for the next
// invocation.
func (c *Collector) CollectBackfill(ctx context.Context, startPage, maxPages int) *Result {
	if startPage < 1 {
		startPage = 1
	}

	res := &Result{NextPage: startPage}
	page := startPage
	fetched := 0

	for fetched < maxPages {
		c.pace()

		p := c.fetcher.FetchPage(ctx, page)
		if stop := c.stopForStatus(p.Status); stop != "" {
			res.Reason = stop
			return res
		}

		for _, article := range p.Articles {
			ts, err := article.PublishedAt()
			if err != nil {
				res.Skipped++
				c.logger.WarnWithFields("skipping article with unparseable timestamp", map[string]interface{}{
					"page":  page,
					"error": err.Error(),
				})
				continue
			}

			c.accept(ctx, res, article, ts, backfillIdentifier)
		}

		res.LastPage = page
		page++
		fetched++
		res.NextPage = page

		if err := retry.Wait(ctx, c.delay); err != nil {
			c.logger.WarnWithFields("run interrupted during page delay", map[string]interface{}{
				"reason": err.Error(),
			})
			res.Reason = StopDegraded
			return res
		}
	}

	res.Reason = StopBudget
	c.logger.InfoWithFields("page budget spent", map[string]interface{}{
		"pages_fetched": fetched,
		"next_page":     res.NextPage,
	})
	return res
}

// accept appends an article to the buffer, advances the high-water mark,
// and performs the threshold flush check.
func (c *Collector) accept(ctx context.Context, res *Result, article forem.Article, ts time.Time, identifier string) {
	c.buffer.Append(article)
	res.Ingested++
	if ts.After(res.HighWater) {
		res.HighWater = ts
	}

	key, err := c.buffer.FlushIfOver(ctx, identifier)
	if err != nil {
		// Flush failure keeps the records buffered; the next threshold
		// check or the final flush retries the write.
		c.logger.WithError(err).Error("threshold flush failed")
		return
	}
	if key != "" {
		res.Artifacts = append(res.Artifacts, key)
	}
}

// stopForStatus maps a non-ok page status to its stop reason.
func (c *Collector) stopForStatus(status forem.PageStatus) StopReason {
	switch status {
	case forem.PageExhausted:
		return StopExhausted
	case forem.PageTransientFailure, forem.PageMalformed:
		return StopDegraded
	default:
		return ""
	}
}

// pace enforces the requests-per-minute ceiling before each fetch.
func (c *Collector) pace() {
	if c.limiter == nil {
		return
	}
	if !c.limiter.Allow() {
		c.logger.Warn("rate limit reached, waiting for next window")
		c.limiter.Wait()
	}
}
