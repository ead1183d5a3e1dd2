package buffer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foremharvest/pkg/forem"
	"foremharvest/pkg/storage"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	}
}

func TestFlushIfOverBelowThreshold(t *testing.T) {
	blob := storage.NewMemoryStore()
	buf := New(blob, "articles", 1<<20, nil)

	buf.Append(forem.Article{"id": 1})
	key, err := buf.FlushIfOver(context.Background(), "1")
	require.NoError(t, err)

	assert.Empty(t, key, "small buffer must not flush")
	assert.Equal(t, 1, buf.Len())
	assert.Empty(t, blob.Keys())
}

func TestFlushIfOverAtThreshold(t *testing.T) {
	blob := storage.NewMemoryStore()
	buf := New(blob, "articles", 10, nil)
	buf.SetClock(fixedClock())

	buf.Append(forem.Article{"id": 1, "title": "a post long enough to serialize past the threshold"})
	key, err := buf.FlushIfOver(context.Background(), "3")
	require.NoError(t, err)

	assert.Equal(t, "2024-03-15/articles=3_20240315T103045Z.json", key)
	assert.Equal(t, 0, buf.Len(), "flush must clear the buffer")

	data, err := blob.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "application/json", blob.ContentType(key))

	var articles []forem.Article
	require.NoError(t, json.Unmarshal(data, &articles))
	assert.Len(t, articles, 1)
}

func TestFlushFinalWritesRemainder(t *testing.T) {
	blob := storage.NewMemoryStore()
	buf := New(blob, "articles", 1<<20, nil)
	buf.SetClock(fixedClock())

	buf.Append(forem.Article{"id": 1})
	buf.Append(forem.Article{"id": 2})

	key, err := buf.FlushFinal(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15/articles=7_20240315T103045Z.json", key)
	assert.Equal(t, 0, buf.Len())
}

func TestFlushFinalEmptyBuffer(t *testing.T) {
	blob := storage.NewMemoryStore()
	buf := New(blob, "articles", 1<<20, nil)

	key, err := buf.FlushFinal(context.Background(), "1")
	require.NoError(t, err)

	assert.Empty(t, key, "empty buffer must not write an artifact")
	assert.Empty(t, blob.Keys())
}

func TestFlushWritesIndentedJSON(t *testing.T) {
	blob := storage.NewMemoryStore()
	buf := New(blob, "articles", 1, nil)
	buf.SetClock(fixedClock())

	buf.Append(forem.Article{"id": 1})
	key, err := buf.FlushIfOver(context.Background(), "1")
	require.NoError(t, err)

	data, err := blob.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")
}

func TestFlushFailureKeepsRecords(t *testing.T) {
	buf := New(failingStore{}, "articles", 1, nil)

	buf.Append(forem.Article{"id": 1})
	_, err := buf.FlushIfOver(context.Background(), "1")
	require.Error(t, err)

	assert.Equal(t, 1, buf.Len(), "failed flush must leave the buffer intact")
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (failingStore) Put(context.Context, string, []byte, string) error {
	return assert.AnError
}
