package forem

import (
	"context"
	"errors"

	"foremharvest/pkg/apierrors"
	"foremharvest/pkg/logger"
	"foremharvest/pkg/retry"
)

// ArticlesClient is the single-attempt fetch operation the Fetcher wraps.
type ArticlesClient interface {
	FetchArticles(ctx context.Context, page int) ([]Article, error)
}

// Fetcher fetches pages with bounded retries and exponential backoff.
// FetchPage never returns an error: every outcome is expressed in the
// returned Page's status.
type Fetcher struct {
	client      ArticlesClient
	maxAttempts int
	backoff     retry.BackoffStrategy
	logger      logger.Logger
}

// NewFetcher creates a Fetcher around the given client.
func NewFetcher(client ArticlesClient, maxAttempts int, backoff retry.BackoffStrategy, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff == nil {
		backoff = retry.DefaultExponentialBackoff()
	}

	return &Fetcher{
		client:      client,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      log,
	}
}

// FetchPage retrieves one page of articles. Transient failures (network,
// 5xx, 429) are retried up to the attempt budget with backoff; a malformed
// response body aborts immediately without retrying.
func (f *Fetcher) FetchPage(ctx context.Context, page int) Page {
	articles, err := retry.DoWithResult(func() ([]Article, error) {
		return f.client.FetchArticles(ctx, page)
	}, &retry.Config{
		MaxAttempts: f.maxAttempts,
		Backoff:     f.backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      f.logger,
	})

	if err != nil {
		status := PageTransientFailure
		var apiErr *apierrors.Error
		if errors.As(err, &apiErr) && apiErr.Type == apierrors.ErrorTypeMalformed {
			status = PageMalformed
		}

		f.logger.ErrorWithFields("page fetch failed", map[string]interface{}{
			"page":   page,
			"status": string(status),
			"error":  err.Error(),
		})
		return Page{Number: page, Status: status}
	}

	if len(articles) == 0 {
		f.logger.InfoWithFields("no more articles upstream", map[string]interface{}{
			"page": page,
		})
		return Page{Number: page, Status: PageExhausted}
	}

	f.logger.InfoWithFields("page fetched", map[string]interface{}{
		"page":     page,
		"articles": len(articles),
	})

	return Page{Number: page, Status: PageOK, Articles: articles}
}
