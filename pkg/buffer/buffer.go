package buffer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foremharvest/pkg/forem"
	"foremharvest/pkg/logger"
	"foremharvest/pkg/storage"
)

const contentTypeJSON = "application/json"

// flushTimestampLayout matches the artifact naming of the storage layout:
// a compact UTC timestamp suffix per flush.
const flushTimestampLayout = "20060102T150405Z"

// Buffer accumulates fetched articles in memory and flushes them to blob
// storage as single atomic artifacts. A buffer lives for exactly one run.
type Buffer struct {
	blob      storage.BlobStore
	baseName  string
	threshold int64
	articles  []forem.Article
	logger    logger.Logger
	now       func() time.Time
}

// New creates a buffer that flushes once its serialized size reaches
// threshold bytes.
func New(blob storage.BlobStore, baseName string, threshold int64, log logger.Logger) *Buffer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Buffer{
		blob:      blob,
		baseName:  baseName,
		threshold: threshold,
		logger:    log,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Test helper.
func (b *Buffer) SetClock(now func() time.Time) {
	b.now = now
}

// Append adds one article to the in-memory buffer.
func (b *Buffer) Append(article forem.Article) {
	b.articles = append(b.articles, article)
}

// Len returns the number of buffered articles.
func (b *Buffer) Len() int {
	return len(b.articles)
}

// FlushIfOver serializes the buffer and, if the serialized size has
// reached the threshold, writes the whole buffer to a new artifact and
// clears it. Returns the artifact key, or "" when no flush happened.
func (b *Buffer) FlushIfOver(ctx context.Context, identifier string) (string, error) {
	if len(b.articles) == 0 {
		return "", nil
	}

	data, err := json.MarshalIndent(b.articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize buffer: %w", err)
	}

	if int64(len(data)) < b.threshold {
		return "", nil
	}

	return b.flush(ctx, identifier, data)
}

// FlushFinal writes whatever remains in the buffer, if anything. Called
// once at run termination. Returns "" when the buffer was already empty.
func (b *Buffer) FlushFinal(ctx context.Context, identifier string) (string, error) {
	if len(b.articles) == 0 {
		return "", nil
	}

	data, err := json.MarshalIndent(b.articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize buffer: %w", err)
	}

	return b.flush(ctx, identifier, data)
}

// flush writes the serialized buffer as one artifact and clears the buffer.
func (b *Buffer) flush(ctx context.Context, identifier string, data []byte) (string, error) {
	key := b.artifactKey(identifier)

	if err := b.blob.Put(ctx, key, data, contentTypeJSON); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", key, err)
	}

	b.logger.InfoWithFields("buffer flushed", map[string]interface{}{
		"key":      key,
		"articles": len(b.articles),
		"bytes":    len(data),
	})

	b.articles = nil
	return key, nil
}

// artifactKey builds a flat key that mimics a date folder hierarchy:
// {date}/{base}={identifier}_{flush-timestamp}.json
func (b *Buffer) artifactKey(identifier string) string {
	now := b.now().UTC()
	return fmt.Sprintf("%s/%s=%s_%s.json",
		now.Format("2006-01-02"),
		b.baseName,
		identifier,
		now.Format(flushTimestampLayout),
	)
}
