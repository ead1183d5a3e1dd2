package checkpoint

import (
	"context"
	"encoding/json"
	"time"

	"foremharvest/pkg/logger"
	"foremharvest/pkg/storage"
)

// Mode-specific checkpoint keys. The timestamp checkpoint and the page
// cursor live at distinct keys and never race on the same record.
const (
	TimestampKey = "latest_timestamp.json"
	PageKey      = "backfill_page.json"
)

const contentTypeJSON = "application/json"

type timestampRecord struct {
	LatestTimestamp string `json:"latest_timestamp"`
}

type pageRecord struct {
	Page int `json:"page"`
}

// Store persists run checkpoints in a blob store.
type Store struct {
	blob   storage.BlobStore
	logger logger.Logger
}

// NewStore creates a checkpoint store over the given blob store.
func NewStore(blob storage.BlobStore, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{blob: blob, logger: log}
}

// LoadTimestamp reads the high-water timestamp checkpoint. A missing or
// unreadable checkpoint means "first run", not an error: it returns a zero
// time and false.
func (s *Store) LoadTimestamp(ctx context.Context) (time.Time, bool) {
	data, err := s.blob.Get(ctx, TimestampKey)
	if err != nil {
		s.logger.InfoWithFields("no timestamp checkpoint", map[string]interface{}{
			"key": TimestampKey,
		})
		return time.Time{}, false
	}

	var rec timestampRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.WarnWithFields("unreadable timestamp checkpoint, treating as first run", map[string]interface{}{
			"key":   TimestampKey,
			"error": err.Error(),
		})
		return time.Time{}, false
	}

	ts, err := time.Parse(time.RFC3339, rec.LatestTimestamp)
	if err != nil {
		s.logger.WarnWithFields("corrupt timestamp checkpoint, treating as first run", map[string]interface{}{
			"key":   TimestampKey,
			"error": err.Error(),
		})
		return time.Time{}, false
	}

	s.logger.InfoWithFields("timestamp checkpoint loaded", map[string]interface{}{
		"latest_timestamp": ts,
	})
	return ts, true
}

// SaveTimestamp persists the high-water timestamp. A zero timestamp is a
// no-op: a valid checkpoint is never overwritten with nothing.
func (s *Store) SaveTimestamp(ctx context.Context, ts time.Time) error {
	if ts.IsZero() {
		return nil
	}

	data, err := json.Marshal(timestampRecord{LatestTimestamp: ts.Format(time.RFC3339)})
	if err != nil {
		return err
	}

	if err := s.blob.Put(ctx, TimestampKey, data, contentTypeJSON); err != nil {
		return err
	}

	s.logger.InfoWithFields("timestamp checkpoint saved", map[string]interface{}{
		"latest_timestamp": ts,
	})
	return nil
}

// LoadPage reads the backfill page cursor, defaulting to 1 when the
// checkpoint is missing or unreadable. The cursor is clamped to >= 1.
func (s *Store) LoadPage(ctx context.Context) int {
	data, err := s.blob.Get(ctx, PageKey)
	if err != nil {
		return 1
	}

	var rec pageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.WarnWithFields("unreadable page checkpoint, starting from page 1", map[string]interface{}{
			"key":   PageKey,
			"error": err.Error(),
		})
		return 1
	}

	if rec.Page < 1 {
		return 1
	}

	s.logger.InfoWithFields("page checkpoint loaded", map[string]interface{}{
		"page": rec.Page,
	})
	return rec.Page
}

// SavePage persists the next page to fetch. Values below 1 are a no-op.
func (s *Store) SavePage(ctx context.Context, page int) error {
	if page < 1 {
		return nil
	}

	data, err := json.Marshal(pageRecord{Page: page})
	if err != nil {
		return err
	}

	if err := s.blob.Put(ctx, PageKey, data, contentTypeJSON); err != nil {
		return err
	}

	s.logger.InfoWithFields("page checkpoint saved", map[string]interface{}{
		"page": page,
	})
	return nil
}
